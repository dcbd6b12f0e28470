// Package submission builds the registration payload handed to the network layer.
package submission

import (
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
)

var (
	// ErrorUnknownDocumentType is returned for a document type that has no payload field
	ErrorUnknownDocumentType = utils.NewDocGuardError("SUBMISSION_UNKNOWN_DOCUMENT_TYPE", "unknown document type")
)

type DocumentType string

const (
	DrivingLicense      DocumentType = "drivingLicense"
	VehicleRegistration DocumentType = "vehicleRegistration"
	InsuranceDocument   DocumentType = "insuranceDocument"
	WorkPatent          DocumentType = "workPatent"
)

var fieldNames = map[DocumentType]string{
	DrivingLicense:      "driving_license",
	VehicleRegistration: "vehicle_registration",
	InsuranceDocument:   "insurance_document",
	WorkPatent:          "work_patent",
}

// DocumentTypes lists the supported document types, in form order.
var DocumentTypes = []DocumentType{DrivingLicense, VehicleRegistration, InsuranceDocument, WorkPatent}

// FieldName returns the payload field of a document type.
func FieldName(documentType string) (string, error) {
	field, ok := fieldNames[DocumentType(documentType)]
	if !ok {
		return "", tracerr.Wrap(ErrorUnknownDocumentType.AddDetails(documentType))
	}
	return field, nil
}
