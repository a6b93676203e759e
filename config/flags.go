package config

import (
	"reflect"
	"strings"

	"github.com/fatih/structs"
	"github.com/urfave/cli/v2"
)

// GenerateFlags builds a cli flag for every field with a flagName tag. The
// current field values are used as flag defaults, and every flag can also
// be set through RANDR_AGENT_<FLAG_NAME>. mappings maps flag names back to
// field names for ApplyFlags.
func GenerateFlags(options ...interface{}) (flags []cli.Flag, mappings map[string]string, err error) {
	mappings = make(map[string]string)

	for _, struct_ := range options {
		o := structs.New(struct_)
		for _, field := range o.Fields() {
			flagName := field.Tag("flagName")
			if flagName == "" {
				continue
			}
			envName := "RANDR_AGENT_" + strings.ToUpper(strings.Join(strings.Split(flagName, "-"), "_"))
			mappings[flagName] = field.Name()

			var aliases []string
			if flagShortName := field.Tag("flagSName"); flagShortName != "" {
				aliases = []string{flagShortName}
			}
			flagDescription := field.Tag("flagDescribe")

			switch field.Kind() {
			case reflect.String:
				flags = append(flags, &cli.StringFlag{
					Name:    flagName,
					Aliases: aliases,
					Value:   field.Value().(string),
					Usage:   flagDescription,
					EnvVars: []string{envName},
				})
			case reflect.Bool:
				flags = append(flags, &cli.BoolFlag{
					Name:    flagName,
					Aliases: aliases,
					Value:   field.Value().(bool),
					Usage:   flagDescription,
					EnvVars: []string{envName},
				})
			case reflect.Int:
				flags = append(flags, &cli.IntFlag{
					Name:    flagName,
					Aliases: aliases,
					Value:   field.Value().(int),
					Usage:   flagDescription,
					EnvVars: []string{envName},
				})
			case reflect.Float64:
				flags = append(flags, &cli.Float64Flag{
					Name:    flagName,
					Aliases: aliases,
					Value:   field.Value().(float64),
					Usage:   flagDescription,
					EnvVars: []string{envName},
				})
			}
		}
	}

	return
}

// ApplyFlags copies every flag that was set explicitly into the options.
func ApplyFlags(
	mappingHint map[string]string,
	c *cli.Context,
	options ...interface{},
) {
	objects := make([]*structs.Struct, len(options))
	for i, struct_ := range options {
		objects[i] = structs.New(struct_)
	}

	for flagName, fieldName := range mappingHint {
		if !c.IsSet(flagName) {
			continue
		}
		var field *structs.Field
		var ok bool
		for _, o := range objects {
			field, ok = o.FieldOk(fieldName)
			if ok {
				break
			}
		}
		if field == nil {
			continue
		}
		var val interface{}
		switch field.Kind() {
		case reflect.String:
			val = c.String(flagName)
		case reflect.Bool:
			val = c.Bool(flagName)
		case reflect.Int:
			val = c.Int(flagName)
		case reflect.Float64:
			val = c.Float64(flagName)
		}
		field.Set(val)
	}
}
