package customvision

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Header names sent with every prediction call.
const (
	HeaderPredictionKey = "Prediction-Key"
	HeaderContentType   = "Content-Type"

	contentTypeJSON = "application/json"
	apiVersion      = "v2.0"
)

// Target identifies a trained model iteration and the credential used to query it.
type Target struct {
	Host          string
	ProjectID     string
	IterationID   string
	PredictionKey string
}

// PredictionRequest is the single HTTPS POST issued against the prediction endpoint.
// It is built once and not mutated afterwards.
type PredictionRequest struct {
	Host    string
	Path    string
	Headers map[string]string
	Body    string
}

type imageURLBody struct {
	URL string `json:"Url"`
}

// PredictionPath returns the URL-image prediction path for a project iteration.
func PredictionPath(projectID, iterationID string) string {
	return fmt.Sprintf("/customvision/%s/Prediction/%s/url?iterationId=%s",
		apiVersion, url.PathEscape(projectID), url.QueryEscape(iterationID))
}

// NewPredictionRequest builds a validated request classifying imageURL against target.
func NewPredictionRequest(target Target, imageURL string) (PredictionRequest, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return PredictionRequest{}, fmt.Errorf("%w: image url is empty", ErrInvalidRequest)
	}
	if strings.TrimSpace(target.ProjectID) == "" || strings.TrimSpace(target.IterationID) == "" {
		return PredictionRequest{}, fmt.Errorf("%w: project and iteration ids are required", ErrInvalidRequest)
	}

	body, err := json.Marshal(imageURLBody{URL: imageURL})
	if err != nil {
		return PredictionRequest{}, &MalformedPayloadError{Stage: StageRequest, Err: err}
	}

	req := PredictionRequest{
		Host: strings.TrimSpace(target.Host),
		Path: PredictionPath(strings.TrimSpace(target.ProjectID), strings.TrimSpace(target.IterationID)),
		Headers: map[string]string{
			HeaderPredictionKey: target.PredictionKey,
			HeaderContentType:   contentTypeJSON,
		},
		Body: string(body),
	}
	if err := req.Validate(); err != nil {
		return PredictionRequest{}, err
	}
	return req, nil
}

// Validate checks the request before anything is sent. A body that is not
// well-formed JSON yields a MalformedPayloadError; other defects wrap ErrInvalidRequest.
func (r PredictionRequest) Validate() error {
	if err := validateHost(r.Host); err != nil {
		return err
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidRequest, r.Path)
	}
	if _, err := url.ParseRequestURI(r.Path); err != nil {
		return fmt.Errorf("%w: path %q: %v", ErrInvalidRequest, r.Path, err)
	}
	if strings.TrimSpace(r.Headers[HeaderPredictionKey]) == "" {
		return fmt.Errorf("%w: %s header is required", ErrInvalidRequest, HeaderPredictionKey)
	}
	if strings.TrimSpace(r.Headers[HeaderContentType]) == "" {
		return fmt.Errorf("%w: %s header is required", ErrInvalidRequest, HeaderContentType)
	}
	if !json.Valid([]byte(r.Body)) {
		return &MalformedPayloadError{Stage: StageRequest, Err: errors.New("body is not valid JSON")}
	}
	return nil
}

// URL returns the absolute https URL the request is sent to.
func (r PredictionRequest) URL() string {
	return "https://" + r.Host + r.Path
}

// validateHost accepts a DNS name or IP with an optional port, nothing else.
func validateHost(host string) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidRequest)
	}
	if strings.ContainsAny(host, "/?#@ ") {
		return fmt.Errorf("%w: host %q must be a bare DNS name", ErrInvalidRequest, host)
	}
	u, err := url.Parse("https://" + host)
	if err != nil || u.Host != host || u.Hostname() == "" {
		return fmt.Errorf("%w: host %q must be a bare DNS name", ErrInvalidRequest, host)
	}
	name := u.Hostname()
	if net.ParseIP(name) != nil {
		return nil
	}
	for _, label := range strings.Split(strings.TrimSuffix(name, "."), ".") {
		if !validDNSLabel(label) {
			return fmt.Errorf("%w: host %q has invalid DNS label %q", ErrInvalidRequest, host, label)
		}
	}
	return nil
}

// validDNSLabel reports whether label is 1-63 letters, digits or hyphens
// and neither starts nor ends with a hyphen.
func validDNSLabel(label string) bool {
	if len(label) == 0 || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return false
		}
	}
	return true
}
