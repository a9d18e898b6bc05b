package pathanon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestAnonymizer(projectRoot string) *Anonymizer {
	return &Anonymizer{
		ProjectRoot:           projectRoot,
		Username:              "alice",
		HomeDir:               "/home/alice",
		AnonymizeHome:         true,
		AnonymizeUsername:     true,
		AnonymizeTemp:         true,
		AnonymizeSitePackages: true,
		AnonymizeVenv:         true,
	}
}

func TestAnonymize_ProjectRoot(t *testing.T) {
	a := newTestAnonymizer("/home/alice/work/myproj")
	a.compileUsernamePatterns()

	got := a.Anonymize("error at /home/alice/work/myproj/main.go:10")
	assert.Contains(t, got, "<PROJECT>/main.go:10")
	assert.NotContains(t, got, "myproj")
}

func TestAnonymize_HomeDir(t *testing.T) {
	a := newTestAnonymizer("")
	a.compileUsernamePatterns()

	got := a.Anonymize("config at /home/alice/.config/bugsafe/config.yaml")
	assert.Equal(t, "config at ~/.config/bugsafe/config.yaml", got)
}

func TestAnonymize_Username(t *testing.T) {
	a := newTestAnonymizer("")
	a.compileUsernamePatterns()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"linux home", "/home/alice/file.txt", "/home/<USER>/file.txt"},
		{"macos users", "/Users/alice/file.txt", "/Users/<USER>/file.txt"},
		{"windows users", `C:\Users\alice\file.txt`, `C:\Users\<USER>\file.txt`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Anonymize(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnonymize_RunUserUID(t *testing.T) {
	a := newTestAnonymizer("")
	a.compileUsernamePatterns()

	got := a.Anonymize("socket at /run/user/1000/bus")
	assert.Contains(t, got, "<UID>")
	assert.NotContains(t, got, "1000")
}

func TestAnonymize_TempDirs(t *testing.T) {
	a := newTestAnonymizer("")
	a.compileUsernamePatterns()

	tests := []struct {
		name  string
		input string
	}{
		{"generic tmp", "log at /tmp/abc123/output.log"},
		{"pytest tmp", "fixture at /tmp/pytest-of-alice/pytest-5/test_foo0"},
		{"darwin var folders", "cache at /var/folders/ab/cdefg12345/T/file"},
		{"windows temp", `log at C:\Users\alice\AppData\Local\Temp\xyz`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Anonymize(tt.input)
			assert.Contains(t, got, "<TMPDIR>")
		})
	}
}

func TestAnonymize_SitePackages(t *testing.T) {
	a := newTestAnonymizer("")
	a.compileUsernamePatterns()

	got := a.Anonymize("/home/alice/.venv/lib/python3.11/site-packages/requests/api.py")
	assert.Contains(t, got, "<SITE_PACKAGES>")
}

func TestAnonymize_Venv(t *testing.T) {
	a := newTestAnonymizer("")
	a.compileUsernamePatterns()

	got := a.Anonymize("/home/alice/.venv/lib/python3.11/site-packages/foo.py")
	assert.Contains(t, got, "<VENV>")
}

func TestAnonymize_EmptyTextIsNoop(t *testing.T) {
	a := New("")
	assert.Equal(t, "", a.Anonymize(""))
}

func TestAnonymize_DisabledStagesAreSkipped(t *testing.T) {
	a := newTestAnonymizer("")
	a.AnonymizeHome = false
	a.compileUsernamePatterns()

	got := a.Anonymize("path /home/alice/.config/x")
	assert.Contains(t, got, "<USER>", "username stage still runs")
	assert.NotContains(t, got, "~")
}

func TestNew_PopulatesFromEnvironment(t *testing.T) {
	a := New("/some/root")
	assert.Equal(t, "/some/root", a.ProjectRoot)
	assert.True(t, a.AnonymizeHome)
	assert.True(t, a.AnonymizeUsername)
}

func TestAnonymizePath_DelegatesToAnonymize(t *testing.T) {
	a := newTestAnonymizer("")
	a.compileUsernamePatterns()
	assert.Equal(t, a.Anonymize("/home/alice/x"), a.AnonymizePath("/home/alice/x"))
}
