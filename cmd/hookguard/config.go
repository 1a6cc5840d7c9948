package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/reglet-dev/hookguard/application/schema"
	"github.com/reglet-dev/hookguard/application/validation"
	"github.com/reglet-dev/hookguard/domain/entities"
	domainerrors "github.com/reglet-dev/hookguard/domain/errors"
	"github.com/reglet-dev/hookguard/infrastructure/configstore"
)

var errInvalidConfig = errors.New("policy document is invalid")

func runConfigCreate(rt *runtime, w io.Writer, force bool) error {
	if err := rt.store.Create(force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Created %s\n", rt.store.ConfigPath())
	return nil
}

// runConfigShow prints the policy the engine would use, in the document's
// own format.
func runConfigShow(rt *runtime, w io.Writer) error {
	cfg, err := rt.store.Load()
	if err != nil {
		return err
	}
	doc, err := configstore.ToDocument(cfg)
	if err != nil {
		return err
	}
	for k, v := range cfg.Extra {
		if _, ok := doc[k]; !ok {
			doc[k] = v
		}
	}
	data, err := configstore.EncodeDocument(doc, rt.store.Format())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func runConfigSchema(w io.Writer) error {
	data, err := schema.ConfigSchema()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, string(data))
	return nil
}

// runConfigValidate checks the document against the schema and the entry
// rules. Problems are listed on w and reported as a config error.
func runConfigValidate(rt *runtime, w io.Writer) error {
	path := rt.store.ConfigPath()
	doc, err := rt.store.ReadDocument()
	if err != nil {
		return err
	}
	if doc == nil {
		_, _ = fmt.Fprintf(w, "%s does not exist, defaults apply\n", path)
		return nil
	}

	validator, err := validation.NewDocumentValidator()
	if err != nil {
		return err
	}
	result, err := validator.Validate(doc)
	if err != nil {
		return err
	}
	if result.Valid {
		cfg, err := rt.store.Read()
		if err != nil {
			return err
		}
		result = cfg.Validate()
	}

	if !result.Valid {
		printErrors(w, path, result.Errors)
		return &domainerrors.ConfigError{Err: errInvalidConfig, Path: path, Op: "validate"}
	}
	_, _ = fmt.Fprintf(w, "%s is valid\n", path)
	return nil
}

func printErrors(w io.Writer, path string, errs []entities.ValidationError) {
	for _, e := range errs {
		field := e.Field
		if field == "" {
			field = "/"
		}
		_, _ = fmt.Fprintf(w, "%s: %s: %s\n", path, field, e.Message)
	}
}
