package fray

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Compiler log parsing. Two shapes appear in the wild:
//
//	ERROR: 0:12: 'foo' : undeclared identifier        (GLSL-style)
//	error: unknown identifier                          (naga-style header)
//	  ┌─ wgsl:12:5                                     (naga-style location)
var (
	glslDiagRe = regexp.MustCompile(`^\s*(ERROR|WARNING):\s*\d+:(\d+):\s*(.+)$`)
	nagaDiagRe = regexp.MustCompile(`^\s*(error|warning)(?:\[[\w-]+\])?:\s*(.+)$`)
	nagaLocRe  = regexp.MustCompile(`┌─\s*\S*?:(\d+):\d+`)
)

// ParseCompileLog parses a raw shader compiler log into diagnostics.
// Unrecognized lines are skipped; a naga-style location line following a
// header fills in the preceding diagnostic's line number.
func ParseCompileLog(log string) []Diagnostic {
	var diags []Diagnostic
	for _, line := range strings.Split(log, "\n") {
		if m := glslDiagRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[2])
			sev := SeverityError
			if m[1] == "WARNING" {
				sev = SeverityWarning
			}
			diags = append(diags, Diagnostic{Severity: sev, Line: n, Message: strings.TrimSpace(m[3])})
			continue
		}
		if m := nagaDiagRe.FindStringSubmatch(line); m != nil {
			sev := SeverityError
			if m[1] == "warning" {
				sev = SeverityWarning
			}
			diags = append(diags, Diagnostic{Severity: sev, Message: strings.TrimSpace(m[2])})
			continue
		}
		if m := nagaLocRe.FindStringSubmatch(line); m != nil && len(diags) > 0 {
			last := &diags[len(diags)-1]
			if last.Line == 0 {
				last.Line, _ = strconv.Atoi(m[1])
			}
		}
	}
	return diags
}

// mapDiagnostics resolves each diagnostic's shader-local line number to an
// original-source reference through the 1-based fragment line map. Lines
// outside the map, or mapped to nil, stay unresolved.
func mapDiagnostics(diags []Diagnostic, lineMap []*SourceRef) {
	if len(lineMap) == 0 {
		return
	}
	for i := range diags {
		line := diags[i].Line
		if line < 1 || line > len(lineMap) {
			continue
		}
		if ref := lineMap[line-1]; ref != nil {
			r := *ref
			diags[i].Source = &r
		}
	}
}

// buildPrograms compiles the scene and probe programs as a pair. A probe
// failure destroys the already-built scene program, so a partial pair never
// leaks. Returned errors are *BuildError with parsed, line-mapped
// diagnostics.
func (r *Renderer) buildPrograms(s *SceneState) (scene, probe Program, err error) {
	scene, err = r.dev.BuildProgram(s.Scene)
	if err != nil {
		return nil, nil, finishBuildError(err, ProgramScene, s.Scene.FragmentLineMap)
	}
	probe, err = r.dev.BuildProgram(s.Probe)
	if err != nil {
		scene.Destroy()
		return nil, nil, finishBuildError(err, ProgramProbe, s.Probe.FragmentLineMap)
	}
	return scene, probe, nil
}

// finishBuildError stamps the program kind onto a device build error and
// fills its diagnostics from the raw log plus the line map. Non-build
// errors pass through unchanged.
func finishBuildError(err error, kind ProgramKind, lineMap []*SourceRef) error {
	var be *BuildError
	if !errors.As(err, &be) {
		return err
	}
	be.Program = kind
	if be.Diagnostics == nil {
		be.Diagnostics = ParseCompileLog(be.Log)
	}
	mapDiagnostics(be.Diagnostics, lineMap)
	return be
}
