package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/golobby/cast"
)

// EnvFeeder reads environment variables named PREFIX_<env tag> into the
// fields carrying an `env` tag. Nested structs are walked; unset or empty
// variables leave fields untouched.
type EnvFeeder struct {
	Prefix string
}

// NewEnvFeeder creates an EnvFeeder with the given prefix.
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

// Feed reads environment variables and populates the provided structure
func (f EnvFeeder) Feed(structure interface{}) error {
	if f.Prefix == "" {
		return ErrEnvEmptyPrefix
	}
	inputType := reflect.TypeOf(structure)
	if inputType == nil || inputType.Kind() != reflect.Ptr || inputType.Elem().Kind() != reflect.Struct {
		return ErrEnvInvalidStructure
	}
	return processStructFields(reflect.ValueOf(structure).Elem(), strings.ToUpper(f.Prefix))
}

// processStructFields iterates through struct fields
func processStructFields(rv reflect.Value, prefix string) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)

		if err := processField(field, &fieldType, prefix); err != nil {
			return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
		}
	}
	return nil
}

// processField handles a single struct field
func processField(field reflect.Value, fieldType *reflect.StructField, prefix string) error {
	switch field.Kind() {
	case reflect.Struct:
		return processStructFields(field, prefix)
	case reflect.Pointer:
		if !field.IsZero() && field.Elem().Kind() == reflect.Struct {
			return processStructFields(field.Elem(), prefix)
		}
		return nil
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		if envTag, exists := fieldType.Tag.Lookup("env"); exists {
			return setFieldFromEnv(field, envTag, prefix)
		}
	}
	return nil
}

// setFieldFromEnv sets a field value from an environment variable
func setFieldFromEnv(field reflect.Value, envTag, prefix string) error {
	envName := prefix + "_" + strings.ToUpper(envTag)
	if envValue := os.Getenv(envName); envValue != "" {
		return setFieldValue(field, envValue)
	}
	return nil
}

// setFieldValue converts and sets a field value
func setFieldValue(field reflect.Value, strValue string) error {
	convertedValue, err := cast.FromType(strValue, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert value to type %v: %w", field.Type(), err)
	}

	if !field.CanSet() {
		return ErrEnvFieldCannotBeSet
	}

	field.Set(reflect.ValueOf(convertedValue).Convert(field.Type()))
	return nil
}
