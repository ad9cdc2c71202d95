package migrations

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/mod/semver"

	"github.com/bianoble/plugin-migrate/internal/jsondoc"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
	"github.com/bianoble/plugin-migrate/internal/yamldoc"
)

const manifestJSON = `{
  "name": "myorg-myapp-app",
  "scripts": {
    "build": "webpack -c ./.config/webpack/webpack.config.ts --env production",
    "lint": "eslint --cache --ignore-path ./.gitignore --ext .js,.jsx,.ts,.tsx .",
    "lint:fix": "npm run lint -- --fix"
  },
  "devDependencies": {
    "@grafana/eslint-config": "^7.0.0",
    "@types/react": "^18.0.26",
    "eslint": "^8.56.0"
  },
  "dependencies": {
    "@grafana/data": "^11.0.0",
    "react": "^18.2.0",
    "react-dom": "^18.2.0"
  }
}
`

const externalsTS = `import type { Configuration } from 'webpack';

type ExternalsType = Configuration['externals'];

export const externals: ExternalsType = [
  { 'amd-module': 'module' },
  'lodash',
  'react',
  ({ request }: Data, callback: (error?: Error) => void) => {
    const prefix = 'grafana/';
    return callback();
  },
];
`

const moduleTS = `import { AppPlugin } from '@grafana/data';
import { App } from './components/App';

export const plugin = new AppPlugin().setRootPage(App);
`

const pluginJSON = `{
  "type": "app",
  "name": "My App",
  "id": "myorg-myapp-app",
  "dependencies": {
    "grafanaDependency": ">=10.4.0",
    "plugins": []
  }
}
`

const composeYAML = `services:
  grafana:
    container_name: 'myorg-myapp-app'
    build:
      context: ./.config
    volumes:
      - ./dist:/var/lib/grafana/plugins/myorg-myapp-app
      - ./provisioning:/etc/grafana/provisioning
`

const composeBaseYAML = `services:
  grafana:
    build:
      context: .
    volumes:
      - ../dist:/var/lib/grafana/plugins/myorg-myapp-app
    environment:
      NODE_ENV: development
`

func scaffold() map[string]string {
	return map[string]string{
		"package.json":                     manifestJSON,
		".eslintrc":                        `{"extends": ["./.config/.eslintrc"]}`,
		".config/.eslintrc":                `{"extends": ["@grafana/eslint-config"], "root": true, "rules": {"react/prop-types": "off"}}`,
		".config/bundler/externals.ts":     externalsTS,
		".config/docker-compose-base.yaml": composeBaseYAML,
		"docker-compose.yaml":              composeYAML,
		"src/plugin.json":                  pluginJSON,
		"src/module.ts":                    moduleTS,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func run(t *testing.T, fn Func, base snapshot.Provider) *snapshot.Snapshot {
	t.Helper()
	snap, err := fn(context.Background(), snapshot.New(base), discardLogger())
	if err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	return snap
}

func file(t *testing.T, snap *snapshot.Snapshot, path string) string {
	t.Helper()
	data, ok := snap.GetFile(path)
	if !ok {
		t.Fatalf("%s does not exist", path)
	}
	return string(data)
}

func manifestSection(t *testing.T, snap *snapshot.Snapshot, section string) map[string]string {
	t.Helper()
	doc, err := jsondoc.Parse([]byte(file(t, snap, "package.json")))
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]string{}
	obj := jsondoc.GetObject(doc, section)
	for _, k := range jsondoc.Keys(obj) {
		out[k], _ = jsondoc.GetString(obj, k)
	}
	return out
}

func TestCatalogIsValidAndOrdered(t *testing.T) {
	cat := Catalog()
	if err := ValidateCatalog(cat, DefaultRegistry()); err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(cat); i++ {
		if semver.Compare("v"+cat[i-1].Version, "v"+cat[i].Version) >= 0 {
			t.Errorf("%s (%s) is not after %s (%s)", cat[i].Name, cat[i].Version, cat[i-1].Name, cat[i-1].Version)
		}
	}
}

func TestValidateCatalogReportsProblems(t *testing.T) {
	reg := NewRegistry()
	reg.Register("noop", func(_ context.Context, s *snapshot.Snapshot, _ *slog.Logger) (*snapshot.Snapshot, error) {
		return s, nil
	})
	cat := []Meta{
		{Name: "a", Version: "1.0.0", Description: "a", EntryPoint: "noop"},
		{Name: "a", Version: "1.x", Description: "dup", EntryPoint: "noop"},
		{Name: "b", Version: "2.0.0", Description: "b", EntryPoint: "missing"},
	}
	err := ValidateCatalog(cat, reg)
	if err == nil {
		t.Fatal("expected an error")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("got %d problems, want 3: %v", len(verr.Errors), verr.Errors)
	}
	for _, want := range []string{"duplicate name 'a'", "Version", "unknown migration entry point 'missing'"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestRegistryGet(t *testing.T) {
	reg := DefaultRegistry()
	if _, err := reg.Get("react-18-3"); err != nil {
		t.Fatal(err)
	}
	_, err := reg.Get("nope")
	if err == nil || !strings.Contains(err.Error(), "i18n-setup") {
		t.Errorf("error = %v, want the registered ids listed", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	for _, m := range Catalog() {
		t.Run(m.Name, func(t *testing.T) {
			fn, err := DefaultRegistry().Get(m.EntryPoint)
			if err != nil {
				t.Fatal(err)
			}
			base := snapshot.NewMemoryProvider(scaffold())
			first := run(t, fn, base)
			if !first.HasChanges() {
				t.Fatal("first run changed nothing")
			}
			base.Apply(first)
			if second := run(t, fn, base); second.HasChanges() {
				t.Errorf("second run changed %v", second.Paths())
			}
		})
	}
}

func TestUpdateComposeExtend(t *testing.T) {
	snap := run(t, UpdateComposeExtend, snapshot.NewMemoryProvider(scaffold()))
	doc, err := yamldoc.Parse([]byte(file(t, snap, "docker-compose.yaml")))
	if err != nil {
		t.Fatal(err)
	}
	svc := doc.Get("services.grafana")
	if diff := cmp.Diff([]string{"extends", "container_name", "volumes"}, yamldoc.Keys(svc)); diff != "" {
		t.Errorf("service keys (-want +got):\n%s", diff)
	}
	var volumes []string
	if err := yamldoc.Lookup(svc, "volumes").Decode(&volumes); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"./provisioning:/etc/grafana/provisioning"}, volumes); diff != "" {
		t.Errorf("volumes (-want +got):\n%s", diff)
	}
	if got := doc.Get("services.grafana.extends.file").Value; got != ".config/docker-compose-base.yaml" {
		t.Errorf("extends.file = %q", got)
	}
}

func TestUpdateComposeExtendWithoutBase(t *testing.T) {
	files := scaffold()
	delete(files, ".config/docker-compose-base.yaml")
	if snap := run(t, UpdateComposeExtend, snapshot.NewMemoryProvider(files)); snap.HasChanges() {
		t.Errorf("changed %v without a base file", snap.Paths())
	}
}

func TestUpdateComposeExtendSkipsBrokenYAML(t *testing.T) {
	files := scaffold()
	files["docker-compose.yaml"] = "services: [\n"
	if snap := run(t, UpdateComposeExtend, snapshot.NewMemoryProvider(files)); snap.HasChanges() {
		t.Errorf("changed %v", snap.Paths())
	}
}

func TestMigrateESLint9(t *testing.T) {
	snap := run(t, MigrateESLint9, snapshot.NewMemoryProvider(scaffold()))

	for _, p := range []string{".eslintrc", ".config/.eslintrc"} {
		if snap.DoesFileExist(p) {
			t.Errorf("%s still exists", p)
		}
	}
	for _, p := range []string{"eslint.config.mjs", ".config/eslint.config.mjs"} {
		if !snap.DoesFileExist(p) {
			t.Errorf("%s was not written", p)
		}
	}

	doc, err := jsondoc.Parse([]byte(file(t, snap, "package.json")))
	if err != nil {
		t.Fatal(err)
	}
	scripts := jsondoc.GetObject(doc, "scripts")
	if got, _ := jsondoc.GetString(scripts, "lint"); got != "eslint --cache ." {
		t.Errorf("lint script = %q", got)
	}
	if got, _ := jsondoc.GetString(scripts, "lint:fix"); got != "npm run lint -- --fix" {
		t.Errorf("lint:fix script = %q", got)
	}

	want := map[string]string{
		"@grafana/eslint-config": "^7.0.0",
		"@types/react":           "^18.0.26",
		"eslint":                 "^9.0.0",
	}
	if diff := cmp.Diff(want, manifestSection(t, snap, "devDependencies")); diff != "" {
		t.Errorf("devDependencies (-want +got):\n%s", diff)
	}
}

func TestMigrateESLint9WithoutLegacyConfig(t *testing.T) {
	files := scaffold()
	delete(files, ".eslintrc")
	delete(files, ".config/.eslintrc")
	if snap := run(t, MigrateESLint9, snapshot.NewMemoryProvider(files)); snap.HasChanges() {
		t.Errorf("changed %v", snap.Paths())
	}
}

func TestStripFlags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"eslint --cache --ignore-path ./.gitignore --ext .js,.jsx,.ts,.tsx .", "eslint --cache ."},
		{"eslint --ext=.ts,.tsx --fix .", "eslint --fix ."},
		{"eslint --ext --fix .", "eslint --fix ."},
		{"eslint  --fix  .", "eslint  --fix  ."},
	}
	for _, tt := range tests {
		if got := stripFlags(tt.in, droppedLintFlags); got != tt.want {
			t.Errorf("stripFlags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUpgradeReact183(t *testing.T) {
	snap := run(t, UpgradeReact183, snapshot.NewMemoryProvider(scaffold()))

	wantDeps := map[string]string{"@grafana/data": "^11.0.0", "react": "^18.3.0", "react-dom": "^18.3.0"}
	if diff := cmp.Diff(wantDeps, manifestSection(t, snap, "dependencies")); diff != "" {
		t.Errorf("dependencies (-want +got):\n%s", diff)
	}
	wantDev := map[string]string{
		"@grafana/eslint-config": "^7.0.0",
		"@types/react":           "^18.3.0",
		"@types/react-dom":       "^18.3.0",
		"eslint":                 "^8.56.0",
	}
	if diff := cmp.Diff(wantDev, manifestSection(t, snap, "devDependencies")); diff != "" {
		t.Errorf("devDependencies (-want +got):\n%s", diff)
	}
}

func TestUpgradeReact183KeepsNewerVersions(t *testing.T) {
	files := map[string]string{"package.json": `{
  "dependencies": {"react": "^19.0.0", "react-dom": "^19.0.0"},
  "devDependencies": {"@types/react": "^19.0.0", "@types/react-dom": "^19.0.0"}
}`}
	if snap := run(t, UpgradeReact183, snapshot.NewMemoryProvider(files)); snap.HasChanges() {
		t.Errorf("changed %v", snap.Paths())
	}
}

func TestUpgradeReact183WithoutReact(t *testing.T) {
	files := map[string]string{"package.json": `{"dependencies": {"lodash": "^4.17.21"}}`}
	if snap := run(t, UpgradeReact183, snapshot.NewMemoryProvider(files)); snap.HasChanges() {
		t.Errorf("changed %v", snap.Paths())
	}
}

func TestAddJSXRuntimeExternal(t *testing.T) {
	snap := run(t, AddJSXRuntimeExternal, snapshot.NewMemoryProvider(scaffold()))
	want := strings.Replace(externalsTS, "    return callback();\n  },\n];",
		"    return callback();\n  },\n  'react/jsx-runtime',\n];", 1)
	if diff := cmp.Diff(want, file(t, snap, ".config/bundler/externals.ts")); diff != "" {
		t.Errorf("externals.ts (-want +got):\n%s", diff)
	}
}

func TestAddJSXRuntimeExternalSkipsUnknownShape(t *testing.T) {
	files := map[string]string{".config/bundler/externals.ts": "export const externals = getExternals();\n"}
	if snap := run(t, AddJSXRuntimeExternal, snapshot.NewMemoryProvider(files)); snap.HasChanges() {
		t.Errorf("changed %v", snap.Paths())
	}
}

func TestSetupI18n(t *testing.T) {
	snap := run(t, SetupI18n, snapshot.NewMemoryProvider(scaffold()))

	plugin, err := jsondoc.Parse([]byte(file(t, snap, "src/plugin.json")))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"en-US"}, jsondoc.GetStrings(plugin, "languages")); diff != "" {
		t.Errorf("languages (-want +got):\n%s", diff)
	}
	if got, _ := jsondoc.GetString(jsondoc.GetObject(plugin, "dependencies"), "grafanaDependency"); got != ">=12.1.0" {
		t.Errorf("grafanaDependency = %q", got)
	}

	if got := file(t, snap, "src/locales/en-US/myorg-myapp-app.json"); got != "{}\n" {
		t.Errorf("locale file = %q", got)
	}

	wantModule := `import { AppPlugin } from '@grafana/data';
import { initPluginTranslations } from '@grafana/i18n';
import pluginJson from 'plugin.json';
import { App } from './components/App';
await initPluginTranslations(pluginJson.id);

export const plugin = new AppPlugin().setRootPage(App);
`
	if diff := cmp.Diff(wantModule, file(t, snap, "src/module.ts")); diff != "" {
		t.Errorf("module.ts (-want +got):\n%s", diff)
	}

	if got := manifestSection(t, snap, "dependencies")["@grafana/i18n"]; got != "^12.1.0" {
		t.Errorf("@grafana/i18n = %q", got)
	}

	base, err := yamldoc.Parse([]byte(file(t, snap, ".config/docker-compose-base.yaml")))
	if err != nil {
		t.Fatal(err)
	}
	if n := base.Get("services.grafana.environment.GF_FEATURE_TOGGLES_ENABLE"); n == nil || n.Value != "localizationForPlugins" {
		t.Errorf("feature toggles = %v", n)
	}
}

func TestSetupI18nKeepsExistingLanguagesAndLocales(t *testing.T) {
	files := scaffold()
	files["src/plugin.json"] = `{"id": "myorg-myapp-app", "languages": ["fr-FR", "en-US"], "dependencies": {"grafanaDependency": ">=12.2.0"}}`
	files["src/locales/en-US/myorg-myapp-app.json"] = `{"hello": "Hello"}`
	snap := run(t, SetupI18n, snapshot.NewMemoryProvider(files))

	if _, tracked := snap.ListChanges()["src/plugin.json"]; tracked {
		t.Error("plugin.json changed")
	}
	if _, tracked := snap.ListChanges()["src/locales/en-US/myorg-myapp-app.json"]; tracked {
		t.Error("existing locale file changed")
	}
	if !snap.DoesFileExist("src/locales/fr-FR/myorg-myapp-app.json") {
		t.Error("fr-FR locale file was not created")
	}
}

func TestSetupI18nWithoutPluginID(t *testing.T) {
	files := scaffold()
	files["src/plugin.json"] = `{"type": "panel"}`
	if snap := run(t, SetupI18n, snapshot.NewMemoryProvider(files)); snap.HasChanges() {
		t.Errorf("changed %v", snap.Paths())
	}
}

func TestEnableFeatureToggle(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		changed bool
		want    string
	}{
		{
			name:    "appends to map value",
			src:     "services:\n  grafana:\n    environment:\n      GF_FEATURE_TOGGLES_ENABLE: a,b\n",
			changed: true,
			want:    "a,b,localizationForPlugins",
		},
		{
			name:    "already enabled",
			src:     "services:\n  grafana:\n    environment:\n      GF_FEATURE_TOGGLES_ENABLE: localizationForPlugins,a\n",
			changed: false,
			want:    "localizationForPlugins,a",
		},
		{
			name:    "creates environment",
			src:     "services:\n  grafana:\n    image: grafana\n",
			changed: true,
			want:    "localizationForPlugins",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := yamldoc.Parse([]byte(tt.src))
			if err != nil {
				t.Fatal(err)
			}
			if got := enableFeatureToggle(doc, "grafana", i18nFeatureToggle); got != tt.changed {
				t.Errorf("changed = %v, want %v", got, tt.changed)
			}
			if got := doc.Get("services.grafana.environment.GF_FEATURE_TOGGLES_ENABLE").Value; got != tt.want {
				t.Errorf("toggles = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnableFeatureToggleListForm(t *testing.T) {
	doc, err := yamldoc.Parse([]byte("services:\n  grafana:\n    environment:\n      - NODE_ENV=development\n      - GF_FEATURE_TOGGLES_ENABLE=a\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !enableFeatureToggle(doc, "grafana", i18nFeatureToggle) {
		t.Fatal("expected a change")
	}
	var env []string
	if err := doc.Get("services.grafana.environment").Decode(&env); err != nil {
		t.Fatal(err)
	}
	want := []string{"NODE_ENV=development", "GF_FEATURE_TOGGLES_ENABLE=a,localizationForPlugins"}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("environment (-want +got):\n%s", diff)
	}
}
