package main

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"clinic-inventory-workers/pkg/registry"
)

type options struct {
	RegistryPath string
	TaskType     string
	OutDir       string
	Force        bool
}

type field struct {
	Name     string
	GoType   string
	JSONName string
	Required bool
}

type workerData struct {
	TaskType    string
	PackageName string
	Path        string
	DisplayName string
	Description string
	Timeout     string
	Input       []field
	Output      []field
}

var files = []struct {
	name string
	tmpl *template.Template
}{
	{"config.go", template.Must(template.New("config").Parse(configTemplate))},
	{"models.go", template.Must(template.New("models").Parse(modelsTemplate))},
	{"handler.go", template.Must(template.New("handler").Parse(handlerTemplate))},
	{"handler_test.go", template.Must(template.New("test").Parse(testTemplate))},
}

// generate renders the worker package for opts.TaskType and returns the
// paths it wrote.
func generate(opts options) ([]string, error) {
	reg, err := registry.LoadRegistry(opts.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	activity, ok := reg.FindByTaskType(opts.TaskType)
	if !ok {
		return nil, fmt.Errorf("task type %s is not in the registry", opts.TaskType)
	}

	data := newWorkerData(activity, opts.OutDir)
	dir := filepath.Join(opts.OutDir, activity.Category, activity.TaskType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil && !opts.Force {
			return written, fmt.Errorf("%s exists, use --force to overwrite", path)
		}

		var buf bytes.Buffer
		if err := f.tmpl.Execute(&buf, data); err != nil {
			return written, fmt.Errorf("render %s: %w", f.name, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return written, fmt.Errorf("format %s: %w", f.name, err)
		}
		if err := os.WriteFile(path, src, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func newWorkerData(a *registry.Activity, outDir string) workerData {
	timeout := a.Timeout
	if timeout == "" {
		timeout = "10s"
	}
	return workerData{
		TaskType:    a.TaskType,
		PackageName: packageName(a.TaskType),
		Path:        filepath.ToSlash(filepath.Join(outDir, a.Category, a.TaskType)),
		DisplayName: a.DisplayName,
		Description: a.Description,
		Timeout:     timeout,
		Input:       schemaFields(a.InputSchema),
		Output:      schemaFields(a.OutputSchema),
	}
}

// packageName turns check-out-unit into checkoutunit.
func packageName(taskType string) string {
	return strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(taskType))
}

func schemaFields(schema map[string]interface{}) []field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	if req, ok := schema["required"].([]interface{}); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		fields = append(fields, field{
			Name:     goName(name),
			GoType:   goType(details["type"]),
			JSONName: name,
			Required: required[name],
		})
	}
	return fields
}

func goType(jsonType interface{}) string {
	switch jsonType {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "array":
		return "[]interface{}"
	case "object":
		return "map[string]interface{}"
	default:
		return "interface{}"
	}
}

// goName exports a camelCase JSON name, spelling a trailing Id as ID.
func goName(jsonName string) string {
	if jsonName == "" {
		return jsonName
	}
	name := strings.ToUpper(jsonName[:1]) + jsonName[1:]
	if strings.HasSuffix(name, "Id") {
		name = strings.TrimSuffix(name, "Id") + "ID"
	}
	return name
}
