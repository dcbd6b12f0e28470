// Package codec converts documents between readers, raw buffers, base64 strings and data URLs.
package codec

import (
	"encoding/base64"
	"fmt"
	"github.com/rideon/docguard/common_models"
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrorIO is returned when the content of a document cannot be read
	ErrorIO = utils.NewDocGuardError("CODEC_IO", "cannot read document content")
	// ErrorFormat is returned when a base64 string or a data URL is malformed
	ErrorFormat = utils.NewDocGuardError("CODEC_FORMAT", "malformed base64 or data URL")
)

const dataURLPrefix = "data:"
const base64Marker = ";base64"

// FileToBuffer reads the whole content of file.
// When the file declares a size, a read returning a different number of bytes is an IO error.
func FileToBuffer(file *common_models.DocumentFile) ([]byte, error) {
	if file == nil || file.Content == nil {
		return nil, tracerr.Wrap(ErrorIO.AddDetails("no content"))
	}
	buff, err := io.ReadAll(file.Content)
	if err != nil {
		return nil, tracerr.Wrap(ErrorIO.AddDetails(err.Error()))
	}
	if file.Size > 0 && int64(len(buff)) != file.Size {
		return nil, tracerr.Wrap(ErrorIO.AddDetails(fmt.Sprintf("read %d bytes, expected %d", len(buff), file.Size)))
	}
	return buff, nil
}

func BufferToBase64(buff []byte) string {
	return base64.StdEncoding.EncodeToString(buff)
}

func Base64ToBuffer(b64 string) ([]byte, error) {
	buff, err := utils.Base64DecodeString(b64)
	if err != nil {
		return nil, tracerr.Wrap(ErrorFormat.AddDetails(err.Error()))
	}
	return buff, nil
}

// DataURLToBlob parses a `data:<mime>;base64,<payload>` URL.
func DataURLToBlob(dataURL string) ([]byte, string, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return nil, "", tracerr.Wrap(ErrorFormat.AddDetails("missing data: prefix"))
	}
	header, payload, found := strings.Cut(dataURL[len(dataURLPrefix):], ",")
	if !found {
		return nil, "", tracerr.Wrap(ErrorFormat.AddDetails("missing payload separator"))
	}
	if !strings.HasSuffix(header, base64Marker) {
		return nil, "", tracerr.Wrap(ErrorFormat.AddDetails("only base64 data URLs are supported"))
	}
	mediaType, _, _ := strings.Cut(strings.TrimSuffix(header, base64Marker), ";")
	if !strings.Contains(mediaType, "/") {
		return nil, "", tracerr.Wrap(ErrorFormat.AddDetails("invalid media type"))
	}
	blob, err := Base64ToBuffer(payload)
	if err != nil {
		return nil, "", tracerr.Wrap(err)
	}
	return blob, mediaType, nil
}

func BlobToDataURL(blob []byte, mediaType string) string {
	return dataURLPrefix + mediaType + base64Marker + "," + BufferToBase64(blob)
}

// SniffMediaType returns the media type detected from the leading bytes of buff, without parameters.
func SniffMediaType(buff []byte) string {
	detected, _, _ := strings.Cut(http.DetectContentType(buff), ";")
	return detected
}

// NormalizeMediaType lowercases a declared media type and strips its parameters.
// The non-standard "image/jpg" spelling is mapped to "image/jpeg".
func NormalizeMediaType(mediaType string) string {
	base, _, _ := strings.Cut(mediaType, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "image/jpg" {
		return common_models.MediaTypeJPEG
	}
	return base
}
