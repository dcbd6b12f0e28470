package sdk

import (
	"context"
	"fmt"
	"github.com/rideon/docguard/common_models"
	"github.com/rideon/docguard/document_processor"
	"github.com/rideon/docguard/integrity"
	"github.com/rideon/docguard/ratelimit"
	"github.com/rideon/docguard/submission"
	"github.com/rideon/docguard/utils"
	"github.com/rs/zerolog"
	"github.com/ztrue/tracerr"
	"sync"
)

var (
	// ErrorSubmitThrottled is returned when a session is submitted again before SubmitInterval has elapsed. Details hold the remaining wait.
	ErrorSubmitThrottled = utils.NewDocGuardError("SDK_SUBMIT_THROTTLED", "submission attempted too soon after the previous one")
	// ErrorSessionSubmitted is returned when submitting a session that was already submitted successfully
	ErrorSessionSubmitted = utils.NewDocGuardError("SDK_SESSION_SUBMITTED", "this session was already submitted")
	// ErrorNoDocuments is returned when submitting without any document
	ErrorNoDocuments = utils.NewDocGuardError("SDK_NO_DOCUMENTS", "at least one document is required")
	// ErrorNoUserEmail is returned when creating a session without the user's email
	ErrorNoUserEmail = utils.NewDocGuardError("SDK_NO_USER_EMAIL", "the user email is required")
)

const submitAction = "submit"

// Document is one uploaded document of a registration form.
type Document struct {
	Type                  submission.DocumentType
	File                  *common_models.DocumentFile
	AddVisibleWatermark   bool
	AddInvisibleWatermark bool
}

// SubmitResult is what a successful submission hands over to the network layer.
type SubmitResult struct {
	Payload   *submission.Payload
	Documents []*common_models.ProcessedDocument
	// Manifest is the signed manifest token. Empty when no ManifestSecret is configured.
	Manifest string
}

// RegistrationSession holds the state of one registration form. It must not outlive its State.
type RegistrationSession struct {
	id        string
	userEmail string
	state     *State
	limiter   *ratelimit.Limiter
	payload   *submission.Payload
	logger    zerolog.Logger
	lock      sync.Mutex
	submitted bool
}

// NewSession starts a registration session for the user with the given email.
func (state *State) NewSession(userEmail string) (*RegistrationSession, error) {
	err := state.checkSdkState()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	if userEmail == "" {
		return nil, tracerr.Wrap(ErrorNoUserEmail)
	}
	id, err := integrity.GenerateSessionId()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	session := &RegistrationSession{
		id:        id,
		userEmail: userEmail,
		state:     state,
		limiter:   ratelimit.New(state.options.Clock),
		payload:   submission.NewPayload(),
		logger:    state.logger.With().Str("component", "registrationSession").Str("session", id).Logger(),
	}
	session.logger.Debug().Str("emailHash", integrity.HashEmail(userEmail)).Msg("New registration session")
	return session, nil
}

func (session *RegistrationSession) Id() string {
	return session.id
}

// Limiter is the rate limiter of this session, for the other throttled actions of the form, such as OTP requests.
func (session *RegistrationSession) Limiter() *ratelimit.Limiter {
	return session.limiter
}

// Payload is the payload of this session. Form fields can be set on it before submitting.
func (session *RegistrationSession) Payload() *submission.Payload {
	return session.payload
}

// Submit watermarks the documents, encrypts them if a RecipientPublicKey is configured, adds them to the session
// payload, and signs the manifest if a ManifestSecret is configured.
// Nothing is added to the payload unless every document succeeds, so a failed Submit can be retried.
func (session *RegistrationSession) Submit(ctx context.Context, documents []Document, progress func(document_processor.Progress)) (*SubmitResult, error) {
	err := session.state.checkSdkState()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	session.lock.Lock()
	defer session.lock.Unlock()

	if session.submitted {
		return nil, tracerr.Wrap(ErrorSessionSubmitted)
	}
	if len(documents) == 0 {
		return nil, tracerr.Wrap(ErrorNoDocuments)
	}
	err = checkDocumentTypes(documents)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	allowed, wait := session.limiter.Allow(submitAction, session.state.options.SubmitInterval)
	if !allowed {
		return nil, tracerr.Wrap(ErrorSubmitThrottled.AddDetails(wait.String()))
	}

	submissions := make([]document_processor.Submission, len(documents))
	for i, document := range documents {
		submissions[i] = document_processor.Submission{
			File: document.File,
			Options: common_models.ProcessDocumentOptions{
				UserEmail:             session.userEmail,
				DocumentType:          string(document.Type),
				AddVisibleWatermark:   document.AddVisibleWatermark,
				AddInvisibleWatermark: document.AddInvisibleWatermark,
			},
		}
	}
	session.logger.Debug().Int("documents", len(documents)).Msg("Submitting...")
	processed, err := session.state.processor.ProcessAll(ctx, submissions, progress)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	var envelopes [][]byte
	if session.state.options.RecipientPublicKey != nil {
		envelopes = make([][]byte, len(processed))
		for i, doc := range processed {
			encrypted, err := document_processor.EncryptDocument(doc, string(documents[i].Type), session.state.options.RecipientPublicKey)
			if err != nil {
				return nil, tracerr.Wrap(err)
			}
			envelopes[i], err = document_processor.SealEnvelope(encrypted)
			if err != nil {
				return nil, tracerr.Wrap(err)
			}
		}
	}

	staged := submission.NewPayload()
	for i, doc := range processed {
		if envelopes != nil {
			err = staged.AddEncrypted(string(documents[i].Type), doc, envelopes[i])
		} else {
			err = staged.Add(string(documents[i].Type), doc)
		}
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
	}
	err = session.payload.Merge(staged)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	result := &SubmitResult{Payload: session.payload, Documents: processed}
	if len(session.state.options.ManifestSecret) != 0 {
		result.Manifest, err = submission.SignManifest(
			session.payload.Manifest(),
			session.state.options.ManifestSecret,
			session.id,
			session.state.options.ManifestTTL,
			session.state.options.Clock(),
		)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
	}
	session.submitted = true

	if session.payload.HasUnprocessed() {
		session.logger.Warn().Msg("Submitted with unprocessed documents")
	} else {
		session.logger.Debug().Msg("Submitted")
	}
	return result, nil
}

func checkDocumentTypes(documents []Document) error {
	seen := utils.Set[submission.DocumentType]{}
	for _, document := range documents {
		_, err := submission.FieldName(string(document.Type))
		if err != nil {
			return tracerr.Wrap(err)
		}
		if seen.Has(document.Type) {
			return tracerr.Wrap(submission.ErrorDuplicateDocument.AddDetails(fmt.Sprintf("%s submitted twice", document.Type)))
		}
		seen.Add(document.Type)
	}
	return nil
}
