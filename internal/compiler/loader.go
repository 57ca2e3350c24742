package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qcml/internal/ast"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll reports every validation error of every problem.
	LoadModeCollectAll
)

// File-level error codes.
const (
	ErrCodeGeneric     = "E001" // generic error
	ErrCodeScanError   = "E002" // directory scan error
	ErrCodeNoFiles     = "E003" // no CUE files, or no problems in them
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
)

// LoadResult holds the programs compiled from a file or directory.
type LoadResult struct {
	Programs  []*ast.Program
	Value     cue.Value
	FileCount int
}

// Program returns the program called name, or nil.
func (r *LoadResult) Program(name string) *ast.Program {
	for _, p := range r.Programs {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// LoadError is a file-level loading error.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads a CUE file, or every CUE file in a directory, and compiles
// each problem under the "problem" field in declaration order.
//
// With LoadModeFailFast the first error stops loading. With
// LoadModeCollectAll every structural error is returned, and problems that
// pass validation are still compiled.
func Load(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}}
	}

	dir, args := path, []string{"."}
	files := []string{path}
	if info.IsDir() {
		files, err = FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
		// Problem files carry no package clause; listing them explicitly
		// loads them as one anonymous instance.
		args = make([]string, len(files))
		for i, f := range files {
			args[i] = filepath.Base(f)
		}
	} else {
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
	}

	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		if ce := formatCUEError(err); IsCompileError(ce) {
			return nil, []error{ce}
		}
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{Value: value, FileCount: len(files)}
	errs := compileProblems(result, value, mode)
	return result, errs
}

func compileProblems(result *LoadResult, value cue.Value, mode LoadMode) []error {
	problems := value.LookupPath(cue.ParsePath("problem"))
	if !problems.Exists() {
		return []error{&LoadError{Code: ErrCodeNoFiles, Message: "no problems found", Pos: value.Pos()}}
	}
	iter, err := problems.Fields()
	if err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating problems: %v", err), Pos: problems.Pos()}}
	}

	var errs []error
	for iter.Next() {
		name := label(iter.Label())
		if mode == LoadModeCollectAll {
			if verrs := ValidateDocument(iter.Value()); len(verrs) > 0 {
				for _, e := range verrs {
					errs = append(errs, &CompileError{
						Field:   "problem." + name + "." + e.Field,
						Message: e.Message,
						Code:    e.Code,
						Pos:     e.Pos,
					})
				}
				continue
			}
		}
		p, err := CompileProblem(iter.Value())
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return errs
			}
			continue
		}
		result.Programs = append(result.Programs, p)
	}

	if len(result.Programs) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoFiles, Message: "problem struct is empty", Pos: problems.Pos()})
	}
	return errs
}

// FindCUEFiles returns the .cue files directly inside dir. Subdirectories
// are not searched.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
