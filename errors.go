package fray

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by renderer operations.
var (
	// ErrNilDevice is returned when a renderer is constructed without a device.
	ErrNilDevice = errors.New("fray: device must not be nil")

	// ErrDestroyed is returned when operations are attempted on a destroyed renderer.
	ErrDestroyed = errors.New("fray: renderer is destroyed")

	// ErrBusy is returned when an offline export is requested while the live
	// loop is running, or when a tick is driven during an export.
	ErrBusy = errors.New("fray: renderer is busy")

	// ErrNoScene is returned when an operation requires a scene and none is loaded.
	ErrNoScene = errors.New("fray: no scene loaded")

	// ErrExportCancelled is returned when the caller's context fires during
	// an offline export. Distinct from every other failure mode so callers
	// can tell an aborted export from a broken one.
	ErrExportCancelled = errors.New("fray: export cancelled")

	// ErrInvalidDimensions is returned when width or height is invalid.
	ErrInvalidDimensions = errors.New("fray: invalid dimensions")
)

// ProgramKind identifies which of the scene's two programs an error refers to.
type ProgramKind uint8

const (
	// ProgramScene is the main accumulation program.
	ProgramScene ProgramKind = iota

	// ProgramProbe is the single-pixel focus probe program.
	ProgramProbe
)

func (k ProgramKind) String() string {
	switch k {
	case ProgramScene:
		return "scene"
	case ProgramProbe:
		return "probe"
	default:
		return fmt.Sprintf("ProgramKind(%d)", uint8(k))
	}
}

// ShaderStage identifies the pipeline stage a build failure occurred in.
type ShaderStage uint8

const (
	// StageVertex is the vertex shader stage.
	StageVertex ShaderStage = iota

	// StageFragment is the fragment shader stage.
	StageFragment

	// StageLink is the pipeline link/validation stage.
	StageLink
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageLink:
		return "link"
	default:
		return fmt.Sprintf("ShaderStage(%d)", uint8(s))
	}
}

// Severity classifies a compiler diagnostic.
type Severity uint8

const (
	// SeverityWarning marks a non-fatal diagnostic.
	SeverityWarning Severity = iota

	// SeverityError marks a fatal diagnostic.
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one parsed compiler message. Line is 1-based in the final
// shader source; Source, when non-nil, locates the message in the original
// scene source via the fragment line map.
type Diagnostic struct {
	Severity Severity
	Line     int
	Message  string
	Source   *SourceRef
}

// BuildError reports a failed shader program build. It carries the raw
// compiler log alongside the parsed diagnostics so callers can show either.
type BuildError struct {
	// Program says whether the scene or the focus-probe program failed.
	Program ProgramKind

	// Stage is the shader stage that failed.
	Stage ShaderStage

	// Log is the raw compiler output.
	Log string

	// Diagnostics is the parsed, line-mapped form of Log.
	Diagnostics []Diagnostic
}

func (e *BuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fray: %s program build failed (%s stage)", e.Program, e.Stage)
	for _, d := range e.Diagnostics {
		if d.Severity != SeverityError {
			continue
		}
		if d.Source != nil {
			fmt.Fprintf(&b, "\n  %s:%d: %s", d.Source.Path, d.Source.Line, d.Message)
		} else {
			fmt.Fprintf(&b, "\n  line %d: %s", d.Line, d.Message)
		}
	}
	return b.String()
}

// UniformError reports a uniform value whose kind does not match the
// declared kind. The renderer's uniform table is left unchanged.
type UniformError struct {
	Name     string
	Declared Kind
	Got      Kind
}

func (e *UniformError) Error() string {
	return fmt.Sprintf("fray: uniform %q: cannot bind %s value to declared %s", e.Name, e.Got, e.Declared)
}
