package configparser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrNotStructPointer = errors.New("config target must be a non-nil pointer to struct")
	ErrRequired         = errors.New("required environment variable is not set")
)

// LoadAndParseYaml fills cfg from `env`/`default` struct tags.
//
// Precedence, highest first: the environment (a .env file included), the YAML
// file with nested keys joined by "_" (database.host -> DATABASE_HOST), then
// the tag defaults. A missing YAML file is not an error.
func LoadAndParseYaml(filepath string, cfg any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not load .env file: %w", err)
	}

	v, err := newViper(filepath)
	if err != nil {
		return err
	}
	return decode(v, cfg)
}

// ParseEnv fills cfg from the environment and tag defaults only.
func ParseEnv(cfg any) error {
	v, err := newViper("")
	if err != nil {
		return err
	}
	return decode(v, cfg)
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		return v, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read config file %s: %w", path, err)
	}

	flat := make(map[string]any, len(file.AllKeys()))
	for _, key := range file.AllKeys() {
		flat[strings.ReplaceAll(key, ".", "_")] = expand(file.Get(key))
	}
	if err := v.MergeConfigMap(flat); err != nil {
		return nil, fmt.Errorf("could not merge config file %s: %w", path, err)
	}
	return v, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expand substitutes ${VAR} and ${VAR:-default} references in string values.
func expand(val any) any {
	s, ok := val.(string)
	if !ok {
		return val
	}
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if env, ok := os.LookupEnv(m[1]); ok && env != "" {
			return env
		}
		return m[2]
	})
}

func decode(v *viper.Viper, cfg any) error {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}

	settings, err := settingsFor(v, rv.Elem().Type())
	if err != nil {
		return err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "env",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(settings); err != nil {
		return fmt.Errorf("invalid config value: %w", err)
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// settingsFor mirrors the shape of t, reading every `env` tagged field from v.
func settingsFor(v *viper.Viper, t reflect.Type) (map[string]any, error) {
	out := make(map[string]any)
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		key, ok := field.Tag.Lookup("env")
		if !ok {
			if field.Type.Kind() == reflect.Struct && field.Type != timeType {
				nested, err := settingsFor(v, field.Type)
				if err != nil {
					return nil, err
				}
				out[field.Name] = nested
			}
			continue
		}

		if def, ok := field.Tag.Lookup("default"); ok {
			v.SetDefault(key, def)
		}
		if !v.IsSet(key) {
			if field.Tag.Get("required") == "true" {
				return nil, fmt.Errorf("%w: %s", ErrRequired, key)
			}
			continue
		}
		out[key] = v.Get(key)
	}
	return out, nil
}
