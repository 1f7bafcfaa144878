package certgen

// Notes:
// - Sessions use per-test base directories and compile through fakeSpawner.
// - Each session works in BASE/ID; Generate removes those directories.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

func testSession(t *testing.T, mutate ...func(*SessionConfig)) (*Session, SessionConfig) {
	t.Helper()

	root := t.TempDir()
	cfg := SessionConfig{
		WorkingDirectory: filepath.Join(root, "work"),
		OutputDirectory:  filepath.Join(root, "out"),
		Logger:           zaptest.NewLogger(t),
		BatchOptions:     testBatchOptions(t, &fakeSpawner{}),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, cfg
}

const sessionStudents = `
students:
  - surname: Doe
    name: Jane
  - surname: Roe
    name: Rick
global:
  place: Paris
`

// ---------------------------------------------------------------------------
// TestNewSession
// ---------------------------------------------------------------------------

func TestNewSession(t *testing.T) {
	t.Parallel()

	s, cfg := testSession(t)
	if _, err := uuid.Parse(s.ID()); err != nil {
		t.Errorf("ID() = %q is not a UUID: %v", s.ID(), err)
	}
	for _, base := range []string{cfg.WorkingDirectory, cfg.OutputDirectory} {
		if _, err := os.Stat(filepath.Join(base, s.ID())); err != nil {
			t.Errorf("session directory missing: %v", err)
		}
	}

	other, _ := testSession(t)
	if other.ID() == s.ID() {
		t.Error("two sessions share an ID")
	}
}

func TestNewSession_RequiresBaseDirectories(t *testing.T) {
	t.Parallel()

	if _, err := NewSession(SessionConfig{WorkingDirectory: t.TempDir()}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("NewSession() error = %v, want ErrInvalidConfiguration", err)
	}
}

// ---------------------------------------------------------------------------
// TestSession_SetConfigurationData
// ---------------------------------------------------------------------------

func TestSession_SetConfigurationDataRejectsReservedKeys(t *testing.T) {
	t.Parallel()

	for _, key := range reservedKeys {
		t.Run(key, func(t *testing.T) {
			t.Parallel()

			s, _ := testSession(t)
			err := s.SetConfigurationData([]byte("students: []\n" + key + ": x\n"))
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("SetConfigurationData() error = %v, want ErrInvalidConfiguration", err)
			}
			if !strings.Contains(err.Error(), "illegal entry "+key) {
				t.Errorf("error %q does not name %q", err, key)
			}
		})
	}
}

func TestSession_SetConfigurationDataInvalid(t *testing.T) {
	t.Parallel()

	s, _ := testSession(t)
	for _, data := range []string{"- a\n- b\n", "students: [\n", "teachers: []\n"} {
		if err := s.SetConfigurationData([]byte(data)); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("SetConfigurationData(%q) error = %v, want ErrInvalidConfiguration", data, err)
		}
	}
}

// ---------------------------------------------------------------------------
// TestSession_Uploads
// ---------------------------------------------------------------------------

func TestSession_AddResourceFile(t *testing.T) {
	t.Parallel()

	s, cfg := testSession(t)
	if err := s.AddResourceFile(File{Name: "logo.png", Content: []byte("png")}); err != nil {
		t.Fatalf("AddResourceFile() error = %v", err)
	}
	got, err := os.ReadFile(filepath.Join(cfg.WorkingDirectory, s.ID(), "logo.png"))
	if err != nil || string(got) != "png" {
		t.Errorf("stored resource = %q, %v", got, err)
	}

	err = s.AddResourceFile(File{Name: "my logo.png"})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("AddResourceFile(unsafe) error = %v, want ErrInvalidConfiguration", err)
	}
	if !strings.Contains(err.Error(), `"mylogo.png"`) {
		t.Errorf("error %q does not suggest a valid name", err)
	}
}

func TestSession_AddTemplateFileSanitizes(t *testing.T) {
	t.Parallel()

	s, cfg := testSession(t)
	name, err := s.AddTemplateFile(File{Name: "../my cert.tex", Content: []byte("x")})
	if err != nil {
		t.Fatalf("AddTemplateFile() error = %v", err)
	}
	if name != "mycert.tex" {
		t.Errorf("stored name = %q, want %q", name, "mycert.tex")
	}
	if _, err := os.Stat(filepath.Join(cfg.WorkingDirectory, s.ID(), name)); err != nil {
		t.Errorf("template not stored: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestSession_Generate - End To End
// ---------------------------------------------------------------------------

func TestSession_Generate(t *testing.T) {
	t.Parallel()

	s, cfg := testSession(t)
	if err := s.SetConfigurationData([]byte(sessionStudents)); err != nil {
		t.Fatalf("SetConfigurationData() error = %v", err)
	}
	if _, err := s.AddTemplateFile(File{Name: "cert.tex", Content: []byte(`\substitude{name} in \substitude{place}`)}); err != nil {
		t.Fatalf("AddTemplateFile() error = %v", err)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	files, err := s.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got := make(map[string]string, len(files))
	for _, f := range files {
		got[f.Name] = string(f.Content)
	}
	want := map[string]string{
		"cert_1_Doe_Jane.pdf": "%PDF cert_1_Doe_Jane",
		"cert_2_Roe_Rick.pdf": "%PDF cert_2_Roe_Rick",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	for _, base := range []string{cfg.WorkingDirectory, cfg.OutputDirectory} {
		if _, err := os.Stat(filepath.Join(base, s.ID())); !os.IsNotExist(err) {
			t.Errorf("session directory under %s not removed: %v", base, err)
		}
	}
	if _, err := s.Generate(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Generate() after close error = %v, want ErrSessionClosed", err)
	}
}

func TestSession_GenerateServerTemplates(t *testing.T) {
	t.Parallel()

	tplDir := t.TempDir()
	writeFile(t, filepath.Join(tplDir, "diploma.tex"), `\substitude[student]{surname}`)

	s, _ := testSession(t, func(c *SessionConfig) {
		c.Templates = []string{filepath.Join(tplDir, "diploma.tex")}
	})
	if err := s.SetConfigurationData([]byte(sessionStudents)); err != nil {
		t.Fatal(err)
	}
	files, err := s.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(files) != 2 || !strings.HasPrefix(files[0].Name, "diploma_") {
		t.Errorf("files = %v, want two diplomas", files)
	}
}

func TestSession_GenerateKeepFiles(t *testing.T) {
	t.Parallel()

	s, cfg := testSession(t, func(c *SessionConfig) { c.KeepFiles = true })
	if err := s.SetConfigurationData([]byte(sessionStudents)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddTemplateFile(File{Name: "cert.tex", Content: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDirectory, s.ID(), "cert_1_Doe_Jane.pdf")); err != nil {
		t.Errorf("output not kept: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.WorkingDirectory, s.ID())); !os.IsNotExist(err) {
		t.Errorf("working directory not removed: %v", err)
	}
}

func TestSession_GenerateFailureKeepsSessionOpen(t *testing.T) {
	t.Parallel()

	s, _ := testSession(t)
	if _, err := s.Generate(context.Background()); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("Generate() without templates error = %v, want ErrInvalidConfiguration", err)
	}
	if _, err := s.AddTemplateFile(File{Name: "cert.tex", Content: []byte(`\substitude{missing}`)}); err != nil {
		t.Fatalf("AddTemplateFile() after failure error = %v", err)
	}
	if err := s.SetConfigurationData([]byte(sessionStudents)); err != nil {
		t.Fatal(err)
	}
	if err := s.Check(); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Check() error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestSession_Close(t *testing.T) {
	t.Parallel()

	s, _ := testSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := s.SetConfigurationData([]byte(sessionStudents)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("SetConfigurationData() error = %v, want ErrSessionClosed", err)
	}
	if err := s.AddResourceFile(File{Name: "a.png"}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("AddResourceFile() error = %v, want ErrSessionClosed", err)
	}
	if _, err := s.AddTemplateFile(File{Name: "a.tex"}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("AddTemplateFile() error = %v, want ErrSessionClosed", err)
	}
	if err := s.Check(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Check() error = %v, want ErrSessionClosed", err)
	}
}
