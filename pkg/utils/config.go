package utils

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

func StringToBoolHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Bool {
			return data, nil
		}

		str := data.(string)
		switch str {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		default:
			return nil, fmt.Errorf("cannot convert %q to bool", str)
		}
	}
}

func StringToIntHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int {
			return data, nil
		}

		str := data.(string)
		var i int
		_, err := fmt.Sscanf(str, "%d", &i)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to int: %v", str, err)
		}
		return i, nil
	}
}

// Decodes "key=value" pairs, given either as a comma separated string
// (environment variables) or as a list, into a map[string]string.
func KeyValueToMapHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(map[string]string{}) {
			return data, nil
		}

		var pairs []string

		switch f.Kind() {
		case reflect.String:
			str := data.(string)
			if str == "" {
				return map[string]string{}, nil
			}
			pairs = strings.Split(str, ",")
		case reflect.Slice:
			items := reflect.ValueOf(data)
			for i := 0; i < items.Len(); i++ {
				pairs = append(pairs, fmt.Sprint(items.Index(i).Interface()))
			}
		default:
			return data, nil
		}

		return ParseKeyValues(pairs)
	}
}

// ParseKeyValues cuts each "key=value" string into a map entry.
// Keys are trimmed, values are kept verbatim.
func ParseKeyValues(pairs []string) (map[string]string, error) {
	result := map[string]string{}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: invalid property %q, expected key=value", ErrParse, pair)
		}
		result[strings.TrimSpace(key)] = value
	}

	return result, nil
}

// Custom unmarshal function to handle time.Duration, bool and key/value maps properly.
func UnmarshalConfig(v *viper.Viper, cfg interface{}) error {
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		StringToBoolHookFunc(),
		StringToIntHookFunc(),
		KeyValueToMapHookFunc(),
	)

	decoderConfig := &mapstructure.DecoderConfig{
		DecodeHook:       hook,
		Result:           cfg,
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return err
	}
	return decoder.Decode(v.AllSettings())
}
