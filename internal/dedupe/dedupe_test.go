package dedupe

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/bianoble/plugin-migrate/internal/yamldoc"
)

const overlayYAML = `# local development stack
services:
  grafana:
    # main container
    container_name: 'myorg-app'
    image: grafana-enterprise:${GRAFANA_VERSION:-11.0.0} # pinned
    build:
      context: ./.config
      args:
        grafana_version: ${GRAFANA_VERSION:-11.0.0}
    volumes:
      - ./dist:/x
      - ./other:/y
    environment:
      GF_LOG_LEVEL: debug
      NODE_ENV: development
`

const baseYAML = `services:
  grafana:
    container_name: 'myorg-app'
    build:
      context: .
      args:
        grafana_version: ${GRAFANA_VERSION:-11.0.0}
    volumes:
      - ../dist:/x
    environment:
      - NODE_ENV=development
`

var target = Target{
	OverlayPath: "docker-compose.yaml",
	BasePath:    ".config/docker-compose-base.yaml",
	Service:     "grafana",
}

func parse(t *testing.T, src string) *yamldoc.Document {
	t.Helper()
	doc, err := yamldoc.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestServiceDeduplicates(t *testing.T) {
	overlay := parse(t, overlayYAML)
	if !Service(overlay, parse(t, baseYAML), target) {
		t.Fatal("expected a change")
	}

	svc := overlay.Get("services.grafana")
	wantKeys := []string{"extends", "image", "volumes", "environment"}
	if diff := cmp.Diff(wantKeys, yamldoc.Keys(svc)); diff != "" {
		t.Errorf("service keys (-want +got):\n%s", diff)
	}

	var volumes []string
	if err := yamldoc.Lookup(svc, "volumes").Decode(&volumes); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"./other:/y"}, volumes); diff != "" {
		t.Errorf("volumes (-want +got):\n%s", diff)
	}

	var ext map[string]string
	if err := yamldoc.Lookup(svc, "extends").Decode(&ext); err != nil {
		t.Fatal(err)
	}
	wantExt := map[string]string{"file": ".config/docker-compose-base.yaml", "service": "grafana"}
	if diff := cmp.Diff(wantExt, ext); diff != "" {
		t.Errorf("extends (-want +got):\n%s", diff)
	}

	if env := yamldoc.Keys(yamldoc.Lookup(svc, "environment")); len(env) != 1 || env[0] != "GF_LOG_LEVEL" {
		t.Errorf("environment keys = %v", env)
	}

	out, err := overlay.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	for _, comment := range []string{"# local development stack", "# pinned"} {
		if !strings.Contains(string(out), comment) {
			t.Errorf("comment %q lost:\n%s", comment, out)
		}
	}
}

func TestServiceIsIdempotent(t *testing.T) {
	overlay := parse(t, overlayYAML)
	base := parse(t, baseYAML)
	Service(overlay, base, target)
	first, _ := overlay.Bytes()

	again := parse(t, string(first))
	if Service(again, base, target) {
		second, _ := again.Bytes()
		t.Errorf("second pass changed the overlay:\n%s", cmp.Diff(string(first), string(second)))
	}
}

func TestServiceWithoutBaseService(t *testing.T) {
	overlay := parse(t, overlayYAML)
	if Service(overlay, parse(t, "services: {}\n"), target) {
		t.Error("expected no change when the base lacks the service")
	}
}

func TestNamedVolumesCompareLiterally(t *testing.T) {
	overlay := parse(t, "services:\n  grafana:\n    volumes:\n      - data:/var/lib/grafana\n      - /abs:/abs\n")
	base := parse(t, "services:\n  grafana:\n    volumes:\n      - data:/var/lib/grafana\n      - ../abs:/abs\n")
	Service(overlay, base, target)

	var volumes []string
	if err := overlay.Get("services.grafana.volumes").Decode(&volumes); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/abs:/abs"}, volumes); diff != "" {
		t.Errorf("volumes (-want +got):\n%s", diff)
	}
}

func TestRelativeTo(t *testing.T) {
	tests := []struct{ dir, target, want string }{
		{".", ".config/base.yaml", ".config/base.yaml"},
		{"deploy", ".config/base.yaml", "../.config/base.yaml"},
		{".config", ".config/base.yaml", "base.yaml"},
	}
	for _, tt := range tests {
		if got := relativeTo(tt.dir, tt.target); got != tt.want {
			t.Errorf("relativeTo(%q, %q) = %q, want %q", tt.dir, tt.target, got, tt.want)
		}
	}
}

func TestEmptyMappingsAreRemoved(t *testing.T) {
	overlay := parse(t, "services:\n  grafana:\n    image: x\n    build:\n      args:\n        a: \"1\"\n")
	base := parse(t, "services:\n  grafana:\n    build:\n      args:\n        a: \"1\"\n")
	Service(overlay, base, target)
	svc := overlay.Get("services.grafana")
	if n := yamldoc.Lookup(svc, "build"); n != nil {
		out, _ := yaml.Marshal(n)
		t.Errorf("build should be removed, got:\n%s", out)
	}
}
