package migrations

import (
	"context"
	"log/slog"

	"github.com/bianoble/plugin-migrate/internal/jsast"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

const (
	externalsPath = ".config/bundler/externals.ts"
	jsxRuntime    = "react/jsx-runtime"
)

// AddJSXRuntimeExternal appends react/jsx-runtime to the bundler externals
// list so plugins share the host application's runtime.
func AddJSXRuntimeExternal(_ context.Context, snap *snapshot.Snapshot, logger *slog.Logger) (*snapshot.Snapshot, error) {
	data, ok := snap.GetFile(externalsPath)
	if !ok {
		logger.Debug("no bundler externals file", slog.String("path", externalsPath))
		return snap, nil
	}
	f, err := jsast.Parse(string(data))
	if err != nil {
		logger.Warn("skipping unparsable file", slog.String("path", externalsPath), slog.String("error", err.Error()))
		return snap, nil
	}
	arr := findExternals(f)
	if arr == nil {
		logger.Warn("externals array not found", slog.String("path", externalsPath))
		return snap, nil
	}
	for _, e := range arr.Elems {
		if s, ok := jsast.StringValue(e); ok && s == jsxRuntime {
			return snap, nil
		}
	}

	f = f.ReplaceNode(arr, jsast.Append(arr, jsast.Str(jsxRuntime)))
	if err := snap.UpdateFile(externalsPath, []byte(f.Print())); err != nil {
		return nil, err
	}
	return snap, nil
}

// findExternals returns the array bound to an `externals` declaration or
// property, whichever comes first.
func findExternals(f *jsast.File) *jsast.Array {
	var found *jsast.Array
	visit := func(n jsast.Node) bool {
		if found != nil {
			return false
		}
		switch v := n.(type) {
		case *jsast.VarDecl:
			if arr, ok := v.Init.(*jsast.Array); ok && v.Name == "externals" {
				found = arr
				return false
			}
		case *jsast.Property:
			if arr, ok := v.Value.(*jsast.Array); ok && v.Key == "externals" {
				found = arr
				return false
			}
		}
		return true
	}
	for _, st := range f.Body {
		jsast.Walk(st, visit)
	}
	return found
}
