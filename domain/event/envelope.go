package event

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"chat-presence/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so error messages match what the client sent.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Envelope is the frame shape in both directions.
type Envelope struct {
	Event Type            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode parses one inbound frame without looking at its payload.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: malformed frame", errors.ErrValidation)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", errors.ErrValidation)
	}
	return env, nil
}

// DecodePayload unmarshals and validates the payload of an envelope.
// Every failure wraps errors.ErrValidation.
func DecodePayload[T any](env Envelope) (T, error) {
	var payload T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return payload, fmt.Errorf("%w: missing data", errors.ErrValidation)
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return payload, fmt.Errorf("%w: %s", errors.ErrValidation, describeJSONError(err))
	}
	if err := validate.Struct(payload); err != nil {
		return payload, fmt.Errorf("%w: %s", errors.ErrValidation, describeValidationError(err))
	}
	return payload, nil
}

// Encode builds an outbound frame.
func Encode(t Type, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: t, Data: data})
}

func describeJSONError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type.String())
	}
	return "malformed data"
}

// Only the first failing field is reported.
func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_without":
		return "one of receiverId or groupId is required"
	case "excluded_with":
		return "receiverId and groupId are mutually exclusive"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
