package flatconfig

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bianoble/plugin-migrate/internal/jsast"
)

type pluginRef struct {
	pkg   string // npm package
	key   string // key in the flat plugins map and rule prefix
	ident string // import binding
}

// resolvePlugin applies the ESLint plugin naming convention:
// "react" and "eslint-plugin-react" are eslint-plugin-react keyed "react";
// "@org" is @org/eslint-plugin keyed "org"; "@org/x" is
// @org/eslint-plugin-x keyed "org/x".
func resolvePlugin(name string) pluginRef {
	var r pluginRef
	if strings.HasPrefix(name, "@") {
		scope, rest, _ := strings.Cut(name, "/")
		short := strings.TrimPrefix(scope, "@")
		switch {
		case rest == "" || rest == "eslint-plugin":
			r.pkg, r.key = scope+"/eslint-plugin", short
		case strings.HasPrefix(rest, "eslint-plugin-"):
			r.pkg, r.key = name, short+"/"+strings.TrimPrefix(rest, "eslint-plugin-")
		default:
			r.pkg, r.key = scope+"/eslint-plugin-"+rest, short+"/"+rest
		}
	} else {
		short := strings.TrimPrefix(name, "eslint-plugin-")
		r.pkg, r.key = "eslint-plugin-"+short, short
	}
	r.ident = jsast.CamelCase(r.key)
	return r
}

// configPackage applies the shareable config naming convention.
func configPackage(ref string) string {
	if strings.HasPrefix(ref, "@") {
		scope, rest, _ := strings.Cut(ref, "/")
		switch {
		case rest == "":
			return scope + "/eslint-config"
		case strings.HasPrefix(rest, "eslint-config"):
			return ref
		default:
			return scope + "/eslint-config-" + rest
		}
	}
	if strings.HasPrefix(ref, "eslint-config-") {
		return ref
	}
	return "eslint-config-" + ref
}

func configIdent(pkg string) string {
	n := strings.TrimPrefix(pkg, "@")
	n = strings.ReplaceAll(n, "eslint-config-", "")
	n = strings.ReplaceAll(n, "/eslint-config", "")
	return jsast.CamelCase(n) + "Config"
}

func parserIdent(pkg string) string {
	n := jsast.CamelCase(strings.TrimPrefix(pkg, "@"))
	if !strings.HasSuffix(n, "Parser") {
		n += "Parser"
	}
	return n
}

// packageName strips a subpath from an import source. Relative sources
// have no package.
func packageName(source string) string {
	if strings.HasPrefix(source, ".") || strings.HasPrefix(source, "/") {
		return ""
	}
	parts := strings.Split(source, "/")
	if strings.HasPrefix(source, "@") && len(parts) > 1 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// envGlobals maps a legacy env name to its key in the globals package.
func envGlobals(env string) string {
	if env == "es6" {
		return "es2015"
	}
	return env
}

// filePattern rewrites a legacy override pattern, which matches basenames
// anywhere when it has no slash, into flat config form.
func filePattern(p string) string {
	neg := strings.HasPrefix(p, "!")
	p = strings.TrimPrefix(strings.TrimPrefix(p, "!"), "./")
	if !strings.Contains(p, "/") {
		p = "**/" + p
	}
	if neg {
		return "!" + p
	}
	return p
}

// ignorePattern rewrites a gitignore-style line into a flat ignores
// pattern. Blank lines and comments yield "".
func ignorePattern(line string) string {
	p := strings.TrimSpace(line)
	if p == "" || strings.HasPrefix(p, "#") {
		return ""
	}
	neg := strings.HasPrefix(p, "!")
	p = strings.TrimPrefix(p, "!")
	switch {
	case strings.HasPrefix(p, "/"):
		p = strings.TrimPrefix(p, "/")
	case !strings.Contains(strings.TrimSuffix(p, "/"), "/") && !strings.HasPrefix(p, "**/"):
		p = "**/" + p
	}
	if neg {
		return "!" + p
	}
	return p
}

func validPattern(p string) bool {
	return doublestar.ValidatePattern(strings.TrimPrefix(p, "!"))
}
