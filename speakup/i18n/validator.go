package i18n

import (
	"fmt"
	"reflect"
)

// validateResource reports every empty string field of a resource struct,
// walking nested structs and struct pointers.
func validateResource(s any, path string) []error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	var errs []error
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		value := v.Field(i)
		currentPath := path + "." + field.Name

		switch value.Kind() {
		case reflect.String:
			if value.String() == "" {
				errs = append(errs, fmt.Errorf("field %s is an empty string", currentPath))
			}
		case reflect.Struct, reflect.Ptr:
			errs = append(errs, validateResource(value.Interface(), currentPath)...)
		}
	}

	return errs
}
