package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/c360/botkit/errors"
)

// File is one binary attachment accompanying a request payload.
type File struct {
	Name        string
	Reader      io.Reader
	ContentType string
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart builds a multipart/form-data body: the JSON payload
// under the payload_json field first, then each attachment as files[i]
// where i is the attachment's position.
func encodeMultipart(payload any, files []File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", errors.WrapInvalid(err, "rest", "encodeMultipart", "marshal payload")
		}
		fw, err := w.CreateFormField("payload_json")
		if err != nil {
			return nil, "", errors.WrapInvalid(err, "rest", "encodeMultipart", "create payload_json field")
		}
		if _, err := fw.Write(data); err != nil {
			return nil, "", errors.WrapInvalid(err, "rest", "encodeMultipart", "write payload_json field")
		}
	}

	for i, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(
			`form-data; name="files[%d]"; filename="%s"`,
			i, quoteEscaper.Replace(f.Name)))
		if f.ContentType != "" {
			header.Set("Content-Type", f.ContentType)
		}

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", errors.WrapInvalid(err, "rest", "encodeMultipart",
				fmt.Sprintf("create part files[%d]", i))
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", errors.WrapTransient(err, "rest", "encodeMultipart",
				fmt.Sprintf("copy attachment %s", f.Name))
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.WrapInvalid(err, "rest", "encodeMultipart", "finalize body")
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
