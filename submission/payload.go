package submission

import (
	"encoding/json"
	"github.com/rideon/docguard/codec"
	"github.com/rideon/docguard/common_models"
	"github.com/rideon/docguard/integrity"
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
	"sort"
)

var (
	// ErrorDuplicateDocument is returned when a payload already holds a document of the same type
	ErrorDuplicateDocument = utils.NewDocGuardError("SUBMISSION_DUPLICATE_DOCUMENT", "a document of this type was already added")
	// ErrorNoDocument is returned when adding a nil document
	ErrorNoDocument = utils.NewDocGuardError("SUBMISSION_NO_DOCUMENT", "document cannot be nil")
	// ErrorReservedField is returned when setting a field that holds a document
	ErrorReservedField = utils.NewDocGuardError("SUBMISSION_RESERVED_FIELD", "this field is reserved for documents")
)

const unprocessedSuffix = "_unprocessed"
const encryptedSuffix = "_encrypted"

// Payload is the JSON object sent by the network layer. Documents are base64 encoded in their mapped field.
// A document sent without protection carries a "<field>_unprocessed": true flag.
type Payload struct {
	fields   map[string]any
	manifest map[string]ManifestEntry
}

func NewPayload() *Payload {
	return &Payload{
		fields:   make(map[string]any),
		manifest: make(map[string]ManifestEntry),
	}
}

func (p *Payload) isDocumentField(key string) bool {
	for _, field := range fieldNames {
		if utils.SliceIncludes([]string{field, field + unprocessedSuffix, field + encryptedSuffix}, key) {
			return true
		}
	}
	return false
}

// Set adds a non-document form field, such as the driver's name.
func (p *Payload) Set(key string, value any) error {
	if p.isDocumentField(key) {
		return tracerr.Wrap(ErrorReservedField.AddDetails(key))
	}
	p.fields[key] = value
	return nil
}

// prepare checks that doc can be added and builds its manifest entry. It does not modify the payload.
func (p *Payload) prepare(documentType string, doc *common_models.ProcessedDocument) (ManifestEntry, error) {
	if doc == nil {
		return ManifestEntry{}, tracerr.Wrap(ErrorNoDocument)
	}
	field, err := FieldName(documentType)
	if err != nil {
		return ManifestEntry{}, tracerr.Wrap(err)
	}
	if _, ok := p.manifest[field]; ok {
		return ManifestEntry{}, tracerr.Wrap(ErrorDuplicateDocument.AddDetails(documentType))
	}
	return ManifestEntry{
		Field:        field,
		WatermarkId:  doc.WatermarkId,
		MetadataHash: doc.MetadataHash,
		ContentHash:  integrity.Hash(doc.Content),
		Unprocessed:  doc.IsFallback(),
	}, nil
}

func (p *Payload) put(entry ManifestEntry, content []byte) {
	p.fields[entry.Field] = codec.BufferToBase64(content)
	if entry.Unprocessed {
		p.fields[entry.Field+unprocessedSuffix] = true
	}
	if entry.Encrypted {
		p.fields[entry.Field+encryptedSuffix] = true
	}
	p.manifest[entry.Field] = entry
}

// Add puts the content of a processed document in the field mapped from documentType.
// The payload is left unchanged on error.
func (p *Payload) Add(documentType string, doc *common_models.ProcessedDocument) error {
	entry, err := p.prepare(documentType, doc)
	if err != nil {
		return tracerr.Wrap(err)
	}
	p.put(entry, doc.Content)
	return nil
}

// AddEncrypted puts a sealed envelope of doc in place of its clear content.
func (p *Payload) AddEncrypted(documentType string, doc *common_models.ProcessedDocument, envelope []byte) error {
	entry, err := p.prepare(documentType, doc)
	if err != nil {
		return tracerr.Wrap(err)
	}
	entry.Encrypted = true
	p.put(entry, envelope)
	return nil
}

// Merge moves every field and document of other into p. Nothing is merged if one of the documents of other
// is already in p.
func (p *Payload) Merge(other *Payload) error {
	for field := range other.manifest {
		if _, ok := p.manifest[field]; ok {
			return tracerr.Wrap(ErrorDuplicateDocument.AddDetails(field))
		}
	}
	for k, v := range other.fields {
		p.fields[k] = v
	}
	for field, entry := range other.manifest {
		p.manifest[field] = entry
	}
	return nil
}

// Fields returns a copy of the payload fields.
func (p *Payload) Fields() map[string]any {
	fields := make(map[string]any, len(p.fields))
	for k, v := range p.fields {
		fields[k] = v
	}
	return fields
}

// Manifest returns one entry per document, sorted by field.
func (p *Payload) Manifest() []ManifestEntry {
	entries := make([]ManifestEntry, 0, len(p.manifest))
	for _, entry := range p.manifest {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Field < entries[j].Field })
	return entries
}

// HasUnprocessed reports whether any document of the payload was sent without protection.
func (p *Payload) HasUnprocessed() bool {
	for _, entry := range p.manifest {
		if entry.Unprocessed {
			return true
		}
	}
	return false
}

func (p *Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.fields)
}
