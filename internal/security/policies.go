package security

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
)

// policyHeader is the identity of an XACML Policy or PolicySet document.
type policyHeader struct {
	Type    models.PolicyType
	ID      string
	Version string
}

// parsePolicyHeader reads the root element of an XACML document.
func parsePolicyHeader(data string) (*policyHeader, error) {
	decoder := xml.NewDecoder(strings.NewReader(data))

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no root element", problem.ErrInvalidPolicyData)
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", problem.ErrInvalidPolicyData, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		header := &policyHeader{}

		var idAttr string

		switch start.Name.Local {
		case "Policy":
			header.Type = models.PolicyTypeXACMLPolicy
			idAttr = "PolicyId"
		case "PolicySet":
			header.Type = models.PolicyTypeXACMLPolicySet
			idAttr = "PolicySetId"
		default:
			return nil, fmt.Errorf("%w: unexpected root element %s", problem.ErrInvalidPolicyData, start.Name.Local)
		}

		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case idAttr:
				header.ID = attr.Value
			case "Version":
				header.Version = attr.Value
			}
		}

		if header.ID == "" {
			return nil, fmt.Errorf("%w: missing %s attribute", problem.ErrInvalidPolicyData, idAttr)
		}

		// the rest of the document must be well formed too
		if err = decoder.Skip(); err != nil {
			return nil, fmt.Errorf("%w: %w", problem.ErrInvalidPolicyData, err)
		}

		if err = checkPolicyTrailer(decoder); err != nil {
			return nil, err
		}

		return header, nil
	}
}

// checkPolicyTrailer allows only whitespace, comments and processing instructions after the root
// element.
func checkPolicyTrailer(decoder *xml.Decoder) error {
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%w: %w", problem.ErrInvalidPolicyData, err)
		}

		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("%w: text after the root element", problem.ErrInvalidPolicyData)
			}
		default:
			return fmt.Errorf("%w: content after the root element", problem.ErrInvalidPolicyData)
		}
	}
}

// checkPolicy validates a policy and derives its type from its data.
func (s *Service) checkPolicy(ctx context.Context, policy *models.Policy) error {
	if err := s.validate(ctx, policy); err != nil {
		return err
	}

	header, err := parsePolicyHeader(policy.Data)
	if err != nil {
		return err
	}

	if header.ID != policy.ID {
		return fmt.Errorf("%w: policy id %q does not match the document id %q",
			problem.ErrInvalidPolicyData, policy.ID, header.ID)
	}

	if header.Version != policy.Version {
		return fmt.Errorf("%w: policy version %q does not match the document version %q",
			problem.ErrInvalidPolicyData, policy.Version, header.Version)
	}

	policy.Type = header.Type

	return nil
}

// CreatePolicy stores an XACML policy or policy set.
func (s *Service) CreatePolicy(ctx context.Context, policy *models.Policy) error {
	if err := s.checkPolicy(ctx, policy); err != nil {
		return err
	}

	duplicate, err := s.repos.Policies.ExistsByID(ctx, policy.ID)
	if err != nil {
		return err
	}

	if duplicate {
		return fmt.Errorf("%w: %s", problem.ErrDuplicatePolicy, policy.ID)
	}

	return s.repos.Policies.Create(ctx, policy)
}

// UpdatePolicy replaces the document of a policy.
func (s *Service) UpdatePolicy(ctx context.Context, policy *models.Policy) error {
	if err := s.checkPolicy(ctx, policy); err != nil {
		return err
	}

	existing, err := s.repos.Policies.FindByID(ctx, policy.ID)
	if err != nil {
		return err
	}

	existing.Version = policy.Version
	existing.Name = policy.Name
	existing.Type = policy.Type
	existing.Data = policy.Data

	if err = s.repos.Policies.Save(ctx, existing); err != nil {
		return err
	}

	*policy = *existing

	return nil
}

// DeletePolicy deletes a policy.
func (s *Service) DeletePolicy(ctx context.Context, policyID string) error {
	return s.repos.Policies.Delete(ctx, policyID)
}

// GetPolicy retrieves a policy.
func (s *Service) GetPolicy(ctx context.Context, policyID string) (*models.Policy, error) {
	return s.repos.Policies.FindByID(ctx, policyID)
}

// GetPolicySummaries lists policy summaries whose name matches the filter.
func (s *Service) GetPolicySummaries(
	ctx context.Context,
	opts repository.ListOptions,
) (*repository.Page[models.PolicySummary], error) {
	return s.repos.Policies.FindSummaries(ctx, opts)
}
