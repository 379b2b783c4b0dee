package suite

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Issue is a lint finding for a loaded case.
type Issue struct {
	TestID  string `json:"test_id"`
	Call    string `json:"call"`
	Message string `json:"message"`
}

// String formats the issue for terminal output.
func (i Issue) String() string {
	if i.Call == "" {
		return fmt.Sprintf("%s: %s", i.TestID, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.TestID, i.Call, i.Message)
}

// Lint checks a case for expectations the model could never satisfy:
// calls to undeclared functions, or expected arguments that violate the
// declared parameter schema. Lint findings do not affect loading.
func Lint(c *Case) []Issue {
	var issues []Issue
	declared := make(map[string]Function, len(c.Functions))
	for _, fn := range c.Functions {
		if _, dup := declared[fn.Name]; dup {
			issues = append(issues, Issue{TestID: c.ID, Message: fmt.Sprintf("function %q is declared more than once", fn.Name)})
			continue
		}
		declared[fn.Name] = fn
	}

	schemas := make(map[string]*gojsonschema.Schema)
	for _, call := range c.Script.Calls() {
		fn, ok := declared[call.Name]
		if !ok {
			issues = append(issues, Issue{TestID: c.ID, Call: call.Name, Message: "function is not declared in available_functions"})
			continue
		}
		if len(fn.Parameters) == 0 {
			continue
		}

		schema, ok := schemas[fn.Name]
		if !ok {
			var err error
			schema, err = compileSchema(fn.Parameters)
			if err != nil {
				issues = append(issues, Issue{TestID: c.ID, Call: call.Name, Message: fmt.Sprintf("invalid parameter schema: %v", err)})
				continue
			}
			schemas[fn.Name] = schema
		}

		args, err := json.Marshal(call.Arguments)
		if err != nil {
			issues = append(issues, Issue{TestID: c.ID, Call: call.Name, Message: fmt.Sprintf("arguments: %v", err)})
			continue
		}

		result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
		if err != nil {
			issues = append(issues, Issue{TestID: c.ID, Call: call.Name, Message: fmt.Sprintf("validate arguments: %v", err)})
			continue
		}
		for _, desc := range result.Errors() {
			issues = append(issues, Issue{TestID: c.ID, Call: call.Name, Message: desc.String()})
		}
	}
	return issues
}

// LintSuite lints every loaded case in s.
func LintSuite(s *Suite) []Issue {
	var issues []Issue
	for _, c := range s.Cases {
		issues = append(issues, Lint(c)...)
	}
	return issues
}

func compileSchema(parameters map[string]any) (*gojsonschema.Schema, error) {
	data, err := json.Marshal(parameters)
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
}
