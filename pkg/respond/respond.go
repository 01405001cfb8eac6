package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var ErrEmptyBody = errors.New("empty request body")

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON кодирует ответ заранее, чтобы ошибка кодирования не оставила полуотправленный 200
func JSON(w http.ResponseWriter, r *http.Request, code int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		code = http.StatusInternalServerError
		buf.Reset()
		json.NewEncoder(&buf).Encode(ErrorBody{Error: "internal error"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, ErrorBody{Error: message})
}

// Decode reads a JSON body into dst. A missing body yields ErrEmptyBody.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}
	return err
}
