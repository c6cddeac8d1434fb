package loader

import (
	"fmt"
	"strings"

	"dwhpipe/internal/schema"
	"dwhpipe/pkg/errors"
)

// JSONAuto lets the warehouse map JSON keys to columns by name.
const JSONAuto = "auto"

// CopySpec is a typed template for one Redshift COPY command. Every field
// is validated before rendering so no raw input reaches the statement text.
type CopySpec struct {
	Table         string
	Source        string // s3:// prefix holding the JSON files
	CredentialARN string // IAM role the warehouse assumes to read storage
	JSONPaths     string // s3:// path of the field-mapping document, or "auto"
	Region        string // optional, when the bucket lives outside the cluster region
}

// Validate checks every parameter before it is rendered into SQL.
func (c CopySpec) Validate() error {
	if !schema.ValidIdentifier(c.Table) {
		return errors.ValidationError("table", c.Table, "not a valid SQL identifier")
	}
	if !strings.HasPrefix(c.Source, "s3://") {
		return errors.ValidationError("source", c.Source, "must be an s3:// path")
	}
	if c.CredentialARN == "" {
		return errors.ValidationError("credential_arn", c.CredentialARN, "is required")
	}
	if c.JSONPaths != JSONAuto && !strings.HasPrefix(c.JSONPaths, "s3://") {
		return errors.ValidationError("jsonpaths", c.JSONPaths, "must be 'auto' or an s3:// path")
	}
	for _, v := range []struct{ field, value string }{
		{"source", c.Source},
		{"credential_arn", c.CredentialARN},
		{"jsonpaths", c.JSONPaths},
		{"region", c.Region},
	} {
		if strings.ContainsAny(v.value, "'\\;") {
			return errors.ValidationError(v.field, v.value, "contains forbidden characters")
		}
	}
	return nil
}

// SQL renders the COPY command. Call Validate first.
func (c CopySpec) SQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "COPY %s\nFROM '%s'\nIAM_ROLE '%s'\nFORMAT AS JSON '%s'",
		c.Table, c.Source, c.CredentialARN, c.JSONPaths)
	if c.Region != "" {
		fmt.Fprintf(&b, "\nREGION '%s'", c.Region)
	}
	return b.String()
}
