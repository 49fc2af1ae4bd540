package runner

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	v1 "github.com/nestpack/nestpack/apis/v1"
)

// ISO8601Basic is a URL-safe timestamp format without colons, suitable for
// S3 keys and filesystem paths.
const ISO8601Basic = "20060102T150405Z"

// BuildVariables creates the variables map for template expansion: built-in
// job variables plus an allow-listed set of environment variables. A listed
// variable that is not set is an error.
func BuildVariables(job v1.PackJob, allowedEnv []string) (map[string]string, error) {
	date := time.Now().UTC()
	variables := map[string]string{
		"JOB_NAME":         job.Metadata.Name,
		"JOB_DATE_ISO8601": date.Format(ISO8601Basic),
		"JOB_DATE_RFC3339": date.Format(time.RFC3339),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}
	return variables, nil
}

// Expand replaces ${VAR} references in the input string using the provided
// variables map. Referencing a variable outside the map is an error.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("variable %q is not in the allowed list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}
	return result, nil
}

// ExpandTemplates walks the struct pointed to by in and expands template
// fields in place. string and *string fields are expanded only when tagged
// `template`; nested structs, struct pointers, and struct slices are always
// traversed. Unexported fields are skipped.
func ExpandTemplates[T any](in *T, variables map[string]string) error {
	if in == nil {
		return nil
	}
	v := reflect.ValueOf(in).Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("ExpandTemplates expects *struct; got *%s", v.Type())
	}
	return expandStruct(v, variables)
}

func expandStruct(v reflect.Value, variables map[string]string) error {
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		field := v.Field(i)
		_, templated := sf.Tag.Lookup("template")

		switch field.Kind() {
		case reflect.String:
			if !templated {
				continue
			}
			expanded, err := Expand(field.String(), variables)
			if err != nil {
				return err
			}
			field.SetString(expanded)

		case reflect.Ptr:
			if field.IsNil() {
				continue
			}
			elem := field.Elem()
			switch elem.Kind() {
			case reflect.String:
				if !templated {
					continue
				}
				expanded, err := Expand(elem.String(), variables)
				if err != nil {
					return err
				}
				elem.SetString(expanded)
			case reflect.Struct:
				if err := expandStruct(elem, variables); err != nil {
					return err
				}
			}

		case reflect.Struct:
			if err := expandStruct(field, variables); err != nil {
				return err
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() != reflect.Struct {
				continue
			}
			for j := 0; j < field.Len(); j++ {
				if err := expandStruct(field.Index(j), variables); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
