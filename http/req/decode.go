package req

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/gorilla/schema"
	usertoken "github.com/tokenmarket/usertoken"
)

type queryParamDecoder struct {
	dec *schema.Decoder
}

func newQueryParamDecoder() queryParamDecoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)

	return queryParamDecoder{dec: dec}
}

func (q queryParamDecoder) decode(structPtr interface{}, params url.Values) error {
	err := q.dec.Decode(structPtr, params)
	if err == nil {
		return nil
	}

	return translateDecoderError(err)
}

// translateDecoderError converts an error returned by *schema.Decoder into standardized errors.
// Some *schema.Decoder errors are issues with calling code;
// some errors are unexpected issues;
// still some are issues with mismatches between a request's query params and the expected shape.
func translateDecoderError(err error) error {
	var pkgErrs schema.MultiError
	if !errors.As(err, &pkgErrs) {
		return fmt.Errorf("%w: %s", usertoken.ErrNotValid, err)
	}

	var validErrs ValidationErrors
	for _, pkgErr := range pkgErrs {
		switch err := pkgErr.(type) {
		case schema.ConversionError:
			validErrs = append(validErrs, ValidationError{
				Field: err.Key,
				// For non-slice values, err.Index is -1.
				Got:  fmt.Sprintf("bad value at index %d", max(0, err.Index)),
				Rule: "must be " + err.Type.String(),
			})

		case schema.UnknownKeyError:
			// Unknown keys are accepted per the decoder configuration;
			// should that change, surface them as field errors.
			validErrs = append(validErrs, ValidationError{
				Field: err.Key,
				Got:   "value is set",
				Rule:  "unexpected key should not be set",
			})

		default:
			return fmt.Errorf("%w: %s", usertoken.ErrUnexpected, err)
		}
	}

	return validErrs
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
