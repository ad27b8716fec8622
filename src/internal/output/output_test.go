package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	_ = w.Close()
	os.Stdout = oldStdout
	return <-done
}

// useFormat sets the format for one test and restores the default afterwards.
func useFormat(t *testing.T, format string) {
	t.Helper()
	if err := SetFormat(format); err != nil {
		t.Fatalf("SetFormat(%q) error = %v", format, err)
	}
	t.Cleanup(func() { _ = SetFormat("default") })
}

func TestSetFormat(t *testing.T) {
	t.Cleanup(func() { _ = SetFormat("default") })

	tests := []struct {
		name    string
		format  string
		want    Format
		wantErr bool
	}{
		{name: "default format", format: "default", want: FormatDefault},
		{name: "json format", format: "json", want: FormatJSON},
		{name: "yaml format", format: "yaml", want: FormatYAML},
		{name: "case and spaces ignored", format: " JSON ", want: FormatJSON},
		{name: "empty format (defaults to default)", format: "", want: FormatDefault},
		{name: "invalid format", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetFormat(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && GetFormat() != tt.want {
				t.Errorf("GetFormat() = %v, want %v", GetFormat(), tt.want)
			}
		})
	}
}

func TestInvalidFormatKeepsPrevious(t *testing.T) {
	useFormat(t, "yaml")

	if err := SetFormat("xml"); err == nil {
		t.Fatal("SetFormat(xml) should fail")
	}
	if GetFormat() != FormatYAML {
		t.Errorf("GetFormat() = %v, want %v after a rejected format", GetFormat(), FormatYAML)
	}
}

func TestIsJSONAndIsStructured(t *testing.T) {
	tests := []struct {
		format         string
		wantJSON       bool
		wantStructured bool
	}{
		{format: "default"},
		{format: "json", wantJSON: true, wantStructured: true},
		{format: "yaml", wantStructured: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			useFormat(t, tt.format)
			if IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", IsJSON(), tt.wantJSON)
			}
			if IsStructured() != tt.wantStructured {
				t.Errorf("IsStructured() = %v, want %v", IsStructured(), tt.wantStructured)
			}
		})
	}
}

func TestPrintJSON(t *testing.T) {
	out := captureStdout(t, func() {
		if err := PrintJSON(map[string]any{"port": 3000, "found": true}); err != nil {
			t.Errorf("PrintJSON() error = %v, want nil", err)
		}
	})

	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("PrintJSON() output is not valid JSON: %v", err)
	}
	if result["port"] != float64(3000) {
		t.Errorf("PrintJSON() port = %v, want 3000", result["port"])
	}
}

func TestPrintJSONUnsupportedValue(t *testing.T) {
	captureStdout(t, func() {
		if err := PrintJSON(map[string]any{"ch": make(chan int)}); err == nil {
			t.Error("PrintJSON() should fail for values JSON cannot encode")
		}
	})
}

func TestPrintYAML(t *testing.T) {
	out := captureStdout(t, func() {
		if err := PrintYAML(map[string]any{"port": 3000, "hostname": "localhost"}); err != nil {
			t.Errorf("PrintYAML() error = %v, want nil", err)
		}
	})

	var result map[string]any
	if err := yaml.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("PrintYAML() output is not valid YAML: %v", err)
	}
	if result["port"] != 3000 || result["hostname"] != "localhost" {
		t.Errorf("PrintYAML() decoded = %v", result)
	}
}

func TestPrintDefault(t *testing.T) {
	useFormat(t, "default")

	called := false
	out := captureStdout(t, func() {
		PrintDefault(func() {
			called = true
			_, _ = os.Stdout.WriteString("test output")
		})
	})

	if !called {
		t.Error("PrintDefault() formatter not called in default mode")
	}
	if !strings.Contains(out, "test output") {
		t.Errorf("PrintDefault() output = %q, want to contain 'test output'", out)
	}
}

func TestPrintDefaultInStructuredModes(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			useFormat(t, format)

			called := false
			PrintDefault(func() { called = true })
			if called {
				t.Errorf("PrintDefault() formatter called in %s mode, should be skipped", format)
			}
		})
	}
}

func TestPrint(t *testing.T) {
	data := map[string]string{"test": "value"}

	t.Run("default", func(t *testing.T) {
		useFormat(t, "default")
		called := false
		out := captureStdout(t, func() {
			if err := Print(data, func() {
				called = true
				_, _ = os.Stdout.WriteString("formatted output")
			}); err != nil {
				t.Errorf("Print() error = %v, want nil", err)
			}
		})
		if !called || !strings.Contains(out, "formatted output") {
			t.Errorf("Print() in default mode should use the formatter, got %q", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		useFormat(t, "json")
		called := false
		out := captureStdout(t, func() {
			if err := Print(data, func() { called = true }); err != nil {
				t.Errorf("Print() error = %v, want nil", err)
			}
		})
		if called {
			t.Error("Print() formatter called in JSON mode, should use PrintJSON")
		}
		var result map[string]string
		if err := json.Unmarshal([]byte(out), &result); err != nil || result["test"] != "value" {
			t.Errorf("Print() in JSON mode output = %q, err = %v", out, err)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		useFormat(t, "yaml")
		out := captureStdout(t, func() {
			if err := Print(data, func() { t.Error("formatter called in YAML mode") }); err != nil {
				t.Errorf("Print() error = %v, want nil", err)
			}
		})
		if strings.TrimSpace(out) != "test: value" {
			t.Errorf("Print() in YAML mode output = %q, want %q", out, "test: value")
		}
	})
}

func TestOutputFunctions(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name string
		fn   func()
		want string
	}{
		{"Header", func() { Header("Port %d", 3000) }, "Port 3000\n\n"},
		{"Success", func() { Success("Port %d is free", 3000) }, SymbolCheck + " Port 3000 is free\n"},
		{"Error", func() { Error("Error %s %d", "message", 456) }, SymbolCross + " Error message 456\n"},
		{"Warning", func() { Warning("careful") }, SymbolWarning + " careful\n"},
		{"Info", func() { Info("note") }, SymbolInfo + " note\n"},
		{"Item", func() { Item("3000") }, "  " + SymbolBullet + " 3000\n"},
		{"ItemSuccess", func() { ItemSuccess("free") }, "  " + SymbolCheck + " free\n"},
		{"ItemError", func() { ItemError("busy") }, "  " + SymbolCross + " busy\n"},
		{"Label", func() { Label("Port", "3000") }, "  Port:      3000\n"},
		{"Newline", func() { Newline() }, "\n"},
		{"Literal percent", func() { Info("100%") }, SymbolInfo + " 100%\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := captureStdout(t, tt.fn); got != tt.want {
				t.Errorf("%s() output = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestStyledStrings(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := Highlight("test %s", "value"); got != "test value" {
		t.Errorf("Highlight() = %q, want %q", got, "test value")
	}
	if got := Muted("pid %d", 42); got != "pid 42" {
		t.Errorf("Muted() = %q, want %q", got, "pid 42")
	}
}
