package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// setDefaultValues fills every zero-valued field tagged `default:"..."`,
// generalized from the teacher's reflect-based defaulting helper to also
// cover bool and float64 fields alongside string/int/[]string.
func setDefaultValues(obj interface{}) {
	tof := reflect.TypeOf(obj).Elem()
	vof := reflect.ValueOf(obj).Elem()

	for i := 0; i < vof.NumField(); i++ {
		vf := vof.Field(i)
		v := tof.Field(i).Tag.Get("default")

		if v == "" || !vf.IsZero() {
			continue
		}

		switch vf.Kind() {
		case reflect.String:
			vf.SetString(v)
		case reflect.Int, reflect.Int64:
			if intv, err := strconv.ParseInt(v, 10, 64); err == nil {
				vf.SetInt(intv)
			}
		case reflect.Float64:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				vf.SetFloat(f)
			}
		case reflect.Bool:
			if b, err := strconv.ParseBool(v); err == nil {
				vf.SetBool(b)
			}
		case reflect.Slice:
			if vf.Type().Elem().Kind() == reflect.String {
				values := strings.Split(v, ",")
				vf.Set(reflect.ValueOf(values))
			}
		}
	}
}

// validate reports every field tagged `validate:"required"` that is still
// at its zero value after defaulting.
func validate(obj interface{}) error {
	tof := reflect.TypeOf(obj).Elem()
	vof := reflect.ValueOf(obj).Elem()

	var missing []string
	for i := 0; i < vof.NumField(); i++ {
		tf := tof.Field(i)
		vf := vof.Field(i)

		tag := tf.Tag.Get("validate")
		if strings.Contains(tag, "required") && vf.IsZero() {
			missing = append(missing, tf.Name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
