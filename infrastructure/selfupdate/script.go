package selfupdate

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// ScriptParams parameterizes the replace-and-restart helper
type ScriptParams struct {
	OldPath     string // running executable, replaced in place
	NewPath     string // staged binary
	ScriptPath  string // where the helper lives; it deletes itself
	WaitSeconds int    // initial wait for the parent to exit
	PollSeconds int    // pause between delete attempts
	MaxAttempts int    // delete attempts before giving up

	// RemoveCommand deletes the old executable. Defaults to the platform
	// delete command; tests substitute a command that fails N times.
	RemoveCommand string
	// NoLaunch skips restarting the new binary
	NoLaunch bool
}

func (p ScriptParams) validate() error {
	if p.OldPath == "" || p.NewPath == "" || p.ScriptPath == "" {
		return fmt.Errorf("old, new and script paths are required")
	}
	if p.OldPath == p.NewPath {
		return fmt.Errorf("staged binary must differ from the running executable")
	}
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if p.WaitSeconds < 0 || p.PollSeconds < 0 {
		return fmt.Errorf("wait and poll seconds must not be negative")
	}
	return nil
}

// ScriptExt returns the helper file extension for goos
func ScriptExt(goos string) string {
	if goos == "windows" {
		return ".bat"
	}
	return ".sh"
}

// Render produces the helper script for goos
func Render(goos string, p ScriptParams) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}

	tmpl := shTemplate
	if goos == "windows" {
		tmpl = batchTemplate
		if p.RemoveCommand == "" {
			p.RemoveCommand = "del /f /q"
		}
	} else if p.RemoveCommand == "" {
		p.RemoveCommand = "rm -f"
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render helper script: %w", err)
	}
	return buf.String(), nil
}

// shQuote single-quotes s for POSIX sh
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// batchEscape protects percent signs inside batch set statements
func batchEscape(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}

var funcs = template.FuncMap{
	"sh":    shQuote,
	"bat":   batchEscape,
	"plus1": func(n int) int { return n + 1 },
}

// The loop only deletes the old binary right before moving the new one
// into place, and stops if the staged binary is gone.
var shTemplate = template.Must(template.New("sh").Funcs(funcs).Parse(`#!/bin/sh
old={{sh .OldPath}}
new={{sh .NewPath}}
self={{sh .ScriptPath}}

sleep {{.WaitSeconds}}

attempt=0
while :; do
  if [ ! -f "$new" ]; then
    echo "staged binary missing: $new" >&2
    rm -f "$self"
    exit 1
  fi
  {{.RemoveCommand}} "$old" >/dev/null 2>&1
  if [ ! -e "$old" ] && mv -f "$new" "$old"; then
    break
  fi
  attempt=$((attempt + 1))
  if [ "$attempt" -ge {{.MaxAttempts}} ]; then
    echo "could not replace $old after $attempt attempts" >&2
    rm -f "$self"
    exit 1
  fi
  sleep {{.PollSeconds}}
done

chmod +x "$old" 2>/dev/null
{{- if not .NoLaunch}}
nohup "$old" >/dev/null 2>&1 &
{{- end}}
rm -f "$self"
exit 0
`))

// Batch variables are only expanded outside parenthesized blocks, so the
// control flow uses labels.
var batchTemplate = template.Must(template.New("bat").Funcs(funcs).Parse(`@echo off
setlocal
set "OLD={{bat .OldPath}}"
set "NEW={{bat .NewPath}}"
set /a ATTEMPT=0

ping -n {{plus1 .WaitSeconds}} 127.0.0.1 >nul

:retry
if not exist "%NEW%" goto cleanup
{{.RemoveCommand}} "%OLD%" >nul 2>&1
if exist "%OLD%" goto wait
move /y "%NEW%" "%OLD%" >nul
if errorlevel 1 goto wait
goto launch

:wait
set /a ATTEMPT+=1
if %ATTEMPT% GEQ {{.MaxAttempts}} goto cleanup
ping -n {{plus1 .PollSeconds}} 127.0.0.1 >nul
goto retry

:launch
{{- if not .NoLaunch}}
start "" "%OLD%"
{{- end}}

:cleanup
(goto) 2>nul & del "%~f0"
`))
