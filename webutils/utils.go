package webutils

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func WriteFileHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, err)
	} else {
		w.Header().Set("Content-Type", "application/json")
		WriteResult(w, res)
	}
}

// WriteYamlFile sends v as a yaml attachment.
func WriteYamlFile(w http.ResponseWriter, v interface{}, fileName string) {
	if data, err := yaml.Marshal(v); err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal"))
	} else {
		WriteFileHeaders(w, fileName+".yaml")
		WriteResult(w, data)
	}
}

// ReadBody decodes a yaml or json request body into v.
func ReadBody(r *http.Request, v interface{}) error {
	if strings.ToUpper(r.Method) != "POST" {
		return errors.Errorf("Invalid http method %q", r.Method)
	}
	if err := yaml.NewDecoder(r.Body).Decode(v); err != nil {
		if err == io.EOF {
			return errors.Errorf("Empty request body")
		}
		return errors.Wrapf(err, "Failed to unmarshal")
	}
	return nil
}

// FloatParam parses query parameter name. def is returned when it is absent.
func FloatParam(r *http.Request, name string, def float32) (float32, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "Invalid %q parameter", name)
	}
	return float32(f), nil
}

func IntParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "Invalid %q parameter", name)
	}
	return i, nil
}

func WriteResult(w http.ResponseWriter, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		log.Printf("Error when writing response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, err error) {
	type jError struct {
		Error string `json:"error"`
	}
	data, merr := json.Marshal(&jError{Error: err.Error()})
	if merr == nil {
		log.Printf("HERR: %v", string(data))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		WriteResult(w, data)
	} else {
		log.Printf("Error marshaling error '%v': %v", err, merr)
	}
}
