package migrations

// catalog lists every migration in release order. Entries are never
// changed once released; new migrations are appended.
var catalog = []Meta{
	{
		Name:        "update-grafana-compose-extend",
		Version:     "5.19.2",
		Description: "Remove settings duplicated from the shared docker compose base and extend its grafana service instead.",
		EntryPoint:  "compose-extend",
	},
	{
		Name:        "eslint9-flat-config",
		Version:     "5.20.0",
		Description: "Convert legacy .eslintrc configuration to eslint 9 flat config.",
		EntryPoint:  "eslint9-flat-config",
	},
	{
		Name:        "react-18-3",
		Version:     "5.21.0",
		Description: "Update react and react-dom to 18.3.",
		EntryPoint:  "react-18-3",
	},
	{
		Name:        "bundler-externals-jsx-runtime",
		Version:     "5.22.0",
		Description: "Treat react/jsx-runtime as an external provided by Grafana.",
		EntryPoint:  "jsx-runtime-external",
	},
	{
		Name:        "i18n-setup",
		Version:     "6.1.0",
		Description: "Set up plugin translations with @grafana/i18n.",
		EntryPoint:  "i18n-setup",
	},
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register("compose-extend", UpdateComposeExtend)
	r.Register("eslint9-flat-config", MigrateESLint9)
	r.Register("react-18-3", UpgradeReact183)
	r.Register("jsx-runtime-external", AddJSXRuntimeExternal)
	r.Register("i18n-setup", SetupI18n)
	return r
}()

func init() {
	if err := ValidateCatalog(catalog, defaultRegistry); err != nil {
		panic(err)
	}
}

// Catalog returns a copy of the built-in catalog.
func Catalog() []Meta {
	return append([]Meta(nil), catalog...)
}

// DefaultRegistry returns the registry holding the built-in entry points.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
