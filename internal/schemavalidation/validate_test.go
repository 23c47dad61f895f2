package schemavalidation

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestValidate_EnvelopeFixture(t *testing.T) {
	repoRoot := repoRoot(t)
	schemaPath := filepath.Join(repoRoot, "docs", "schema", "envelope-v1.schema.json")
	instancePath := filepath.Join(repoRoot, "docs", "spec", "fixtures", "envelope-v1.json")

	v, err := Compile(schemaPath)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	instanceData, err := os.ReadFile(instancePath)
	if err != nil {
		t.Fatalf("read instance: %v", err)
	}

	if err := v.Validate(instanceData); err != nil {
		t.Fatalf("validate fixture: %v", err)
	}
}

func TestValidate_RejectsMissingRequiredField(t *testing.T) {
	schemaPath := filepath.Join(repoRoot(t), "docs", "schema", "envelope-v1.schema.json")
	v, err := Compile(schemaPath)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	if err := v.Validate([]byte(`{"version":"1.0.0"}`)); err == nil {
		t.Fatal("expected validation error for document missing required fields")
	}
}

func TestCompileBytes_MatchesCompileFromFile(t *testing.T) {
	repoRoot := repoRoot(t)
	schemaData, err := os.ReadFile(filepath.Join(repoRoot, "docs", "schema", "envelope-v1.schema.json"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	v, err := CompileBytes("https://typedcode.dev/schema/envelope-v1.schema.json", schemaData)
	if err != nil {
		t.Fatalf("compile bytes: %v", err)
	}

	instanceData, err := os.ReadFile(filepath.Join(repoRoot, "docs", "spec", "fixtures", "envelope-v1.json"))
	if err != nil {
		t.Fatalf("read instance: %v", err)
	}
	if err := v.Validate(instanceData); err != nil {
		t.Fatalf("validate fixture: %v", err)
	}
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("unable to resolve caller path")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
