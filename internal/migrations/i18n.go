package migrations

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/plugin-migrate/internal/deps"
	"github.com/bianoble/plugin-migrate/internal/jsast"
	"github.com/bianoble/plugin-migrate/internal/jsondoc"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
	"github.com/bianoble/plugin-migrate/internal/yamldoc"
)

const (
	pluginJSONPath    = "src/plugin.json"
	localesDir        = "src/locales"
	i18nPackage       = "@grafana/i18n"
	i18nVersion       = "^12.1.0"
	i18nGrafanaFloor  = ">=12.1.0"
	i18nInit          = "initPluginTranslations"
	featureTogglesKey = "GF_FEATURE_TOGGLES_ENABLE"
	i18nFeatureToggle = "localizationForPlugins"
)

var (
	defaultLanguages = []string{"en-US"}
	moduleEntryPaths = []string{"src/module.ts", "src/module.tsx", "src/module.js", "src/module.jsx"}
)

// SetupI18n prepares a plugin for translations: it declares languages and
// the minimum Grafana version in plugin.json, seeds one locale file per
// language, initialises translations in the module entry, adds the i18n
// package and enables the feature toggle in the development server.
func SetupI18n(_ context.Context, snap *snapshot.Snapshot, logger *slog.Logger) (*snapshot.Snapshot, error) {
	plugin, ok := readJSON(snap, pluginJSONPath, logger)
	if !ok {
		logger.Debug("no readable plugin descriptor", slog.String("path", pluginJSONPath))
		return snap, nil
	}
	id, _ := jsondoc.GetString(plugin, "id")
	if id == "" {
		logger.Warn("plugin descriptor has no id", slog.String("path", pluginJSONPath))
		return snap, nil
	}

	languages, changed := mergeLanguages(plugin, defaultLanguages)
	if raiseGrafanaDependency(plugin, i18nGrafanaFloor) {
		changed = true
	}
	if changed {
		if err := writeJSON(snap, pluginJSONPath, plugin); err != nil {
			return nil, err
		}
	}

	for _, lang := range languages {
		p := path.Join(localesDir, lang, id+".json")
		if snap.DoesFileExist(p) {
			continue
		}
		if err := snap.AddFile(p, []byte("{}\n")); err != nil {
			return nil, err
		}
	}

	if err := initTranslations(snap, logger); err != nil {
		return nil, err
	}

	summary, err := deps.AddDependenciesToPackageJSON(snap, map[string]string{i18nPackage: i18nVersion}, nil)
	if err != nil {
		return nil, err
	}
	logSummary(logger, summary)

	if base, ok := readYAML(snap, composeBasePath, logger); ok && enableFeatureToggle(base, composeService, i18nFeatureToggle) {
		out, err := base.Bytes()
		if err != nil {
			return nil, err
		}
		if err := snap.UpdateFile(composeBasePath, out); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// mergeLanguages unions want into the descriptor's languages, keeping the
// existing order, and returns the full list.
func mergeLanguages(plugin *jsondoc.Object, want []string) ([]string, bool) {
	have := jsondoc.GetStrings(plugin, "languages")
	raw, _ := plugin.Get("languages")
	items, _ := raw.([]any)

	seen := make(map[string]bool, len(have))
	var languages []string
	for _, l := range have {
		if !seen[l] {
			seen[l] = true
			languages = append(languages, l)
		}
	}
	changed := false
	for _, l := range want {
		if seen[l] {
			continue
		}
		seen[l] = true
		languages = append(languages, l)
		items = append(items, l)
		changed = true
	}
	if changed {
		plugin.Set("languages", items)
	}
	return languages, changed
}

// raiseGrafanaDependency sets dependencies.grafanaDependency to floor
// unless the current range already starts at or above it.
func raiseGrafanaDependency(plugin *jsondoc.Object, floor string) bool {
	current, _ := jsondoc.GetString(jsondoc.GetObject(plugin, "dependencies"), "grafanaDependency")
	if current != "" && (current == floor || !deps.Reconcile(floor, current)) {
		return false
	}
	jsondoc.EnsureObject(plugin, "dependencies").Set("grafanaDependency", floor)
	return true
}

// initTranslations imports the i18n initialiser and the plugin descriptor
// after the module entry's first import and awaits the initialiser after
// the last one.
func initTranslations(snap *snapshot.Snapshot, logger *slog.Logger) error {
	entry, ok := firstExisting(snap, moduleEntryPaths)
	if !ok {
		logger.Warn("module entry not found")
		return nil
	}
	data, _ := snap.GetFile(entry)
	f, err := jsast.Parse(string(data))
	if err != nil {
		logger.Warn("skipping unparsable file", slog.String("path", entry), slog.String("error", err.Error()))
		return nil
	}
	if f.Binds(i18nPackage, i18nInit) {
		return nil
	}

	var added []jsast.Stmt
	added = append(added, jsast.NamedImport(i18nPackage, i18nInit))
	pluginJSON := pluginJSONBinding(f)
	if pluginJSON == "" {
		pluginJSON = "pluginJson"
		added = append(added, jsast.DefaultImport(pluginJSON, "plugin.json"))
	}

	at := 0
	if idx := f.Imports(); len(idx) > 0 {
		at = idx[0] + 1
	}
	f = f.Insert(at, added...)
	idx := f.Imports()
	f = f.Insert(idx[len(idx)-1]+1, jsast.RawStatement("await "+i18nInit+"("+pluginJSON+".id);"))
	return snap.UpdateFile(entry, []byte(f.Print()))
}

func pluginJSONBinding(f *jsast.File) string {
	for _, source := range []string{"plugin.json", "./plugin.json"} {
		if imp, _ := f.FindImport(source); imp != nil && imp.Default != "" {
			return imp.Default
		}
	}
	return ""
}

// enableFeatureToggle adds toggle to the service's feature toggle variable,
// in either map or KEY=VALUE list form.
func enableFeatureToggle(doc *yamldoc.Document, service, toggle string) bool {
	svc := yamldoc.Lookup(doc.Root(), "services", service)
	if svc == nil || svc.Kind != yaml.MappingNode {
		return false
	}
	env := yamldoc.Lookup(svc, "environment")
	if env != nil && env.Kind == yaml.SequenceNode {
		for _, item := range env.Content {
			key, value, _ := strings.Cut(item.Value, "=")
			if key != featureTogglesKey {
				continue
			}
			next, changed := withToggle(value, toggle)
			if changed {
				item.Value = key + "=" + next
			}
			return changed
		}
		env.Content = append(env.Content, yamldoc.NewScalar(featureTogglesKey+"="+toggle))
		return true
	}

	current := ""
	if n := yamldoc.Lookup(svc, "environment", featureTogglesKey); n != nil {
		current = n.Value
	}
	next, changed := withToggle(current, toggle)
	if !changed {
		return false
	}
	return yamldoc.SetNode(svc, []string{"environment", featureTogglesKey}, yamldoc.NewScalar(next))
}

func withToggle(list, toggle string) (string, bool) {
	var toggles []string
	for _, t := range strings.Split(list, ",") {
		t = strings.TrimSpace(t)
		if t == toggle {
			return list, false
		}
		if t != "" {
			toggles = append(toggles, t)
		}
	}
	return strings.Join(append(toggles, toggle), ","), true
}
