package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"sort"
)

// Payload is an assembled submission body, ready for the persistence
// boundary. ContentType is application/json for pure-data forms and a
// multipart/form-data type when binary artifacts are present.
type Payload struct {
	FormKey     string
	ContentType string
	Body        []byte
}

// Assemble builds the final payload from the collected state and captured
// artifacts. Assembly is deterministic: the same state and artifacts always
// produce an equivalent payload, so a retry after a network failure re-sends
// what the first attempt sent.
func Assemble(formKey string, state FormState, artifacts map[string]*MediaArtifact) (*Payload, error) {
	data, err := json.Marshal(exportState(state))
	if err != nil {
		return nil, fmt.Errorf("marshal form data: %w", err)
	}

	if len(artifacts) == 0 {
		return &Payload{FormKey: formKey, ContentType: "application/json", Body: data}, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("data", string(data)); err != nil {
		return nil, fmt.Errorf("write data part: %w", err)
	}

	// Sorted slot order keeps retried payloads byte-comparable aside from
	// the generated boundary.
	names := make([]string, 0, len(artifacts))
	for name := range artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		art := artifacts[name]
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, name+extensionFor(art.MIMEType)))
		hdr.Set("Content-Type", art.MIMEType)
		part, err := w.CreatePart(hdr)
		if err != nil {
			return nil, fmt.Errorf("create part %q: %w", name, err)
		}
		if _, err := part.Write(art.Payload); err != nil {
			return nil, fmt.Errorf("write part %q: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	return &Payload{FormKey: formKey, ContentType: w.FormDataContentType(), Body: buf.Bytes()}, nil
}

// exportState copies the structured answers, leaving artifact values out:
// binary payloads travel as their own multipart sections, keyed by slot name.
func exportState(state FormState) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		if _, isArtifact := v.(*MediaArtifact); isArtifact {
			continue
		}
		out[k] = v
	}
	return out
}

func extensionFor(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
