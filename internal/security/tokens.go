package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/problem"
)

// ErrTokenSigningKeyMissing is returned when tokens are generated or validated without a signing key.
var ErrTokenSigningKeyMissing = errors.New("token signing key is not configured")

// GenerateTokenRequest describes a token to generate.
type GenerateTokenRequest struct {
	Type          models.TokenType    `json:"type" validate:"omitempty,eq=jwt"`
	Name          string              `json:"name" validate:"required,max=100"`
	Description   string              `json:"description" validate:"max=200"`
	Claims        []models.TokenClaim `json:"claims" validate:"dive"`
	ValidFromDate *time.Time          `json:"validFromDate"`
	ExpiryDate    *time.Time          `json:"expiryDate"`
}

// GenerateToken issues an HS256 signed JWT carrying the requested claims and stores it.
// Claims with a single value are encoded as strings, others as string arrays.
func (s *Service) GenerateToken(ctx context.Context, req GenerateTokenRequest) (*models.Token, error) {
	if len(s.tokenSigningKey) == 0 {
		return nil, ErrTokenSigningKeyMissing
	}

	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}

	if req.ValidFromDate != nil && req.ExpiryDate != nil && !req.ExpiryDate.After(*req.ValidFromDate) {
		return nil, fmt.Errorf("%w: the expiry date must be after the valid from date", problem.ErrInvalidArgument)
	}

	duplicate, err := s.repos.Tokens.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}

	if duplicate {
		return nil, fmt.Errorf("%w: %s", problem.ErrDuplicateToken, req.Name)
	}

	now := s.now()
	token := &models.Token{
		ID:            uuid.New(),
		Type:          models.TokenTypeJWT,
		Name:          req.Name,
		Description:   req.Description,
		Claims:        req.Claims,
		ValidFromDate: utc(req.ValidFromDate),
		ExpiryDate:    utc(req.ExpiryDate),
		Issued:        now,
	}

	claims := jwt.MapClaims{}

	for _, c := range req.Claims {
		if len(c.Values) == 1 {
			claims[c.Name] = c.Values[0]
		} else {
			claims[c.Name] = c.Values
		}
	}

	// registered claims win over requested claims of the same name
	claims["jti"] = token.ID.String()
	claims["iss"] = s.tokenIssuer
	claims["sub"] = token.Name
	claims["iat"] = jwt.NewNumericDate(now)

	if token.ValidFromDate != nil {
		claims["nbf"] = jwt.NewNumericDate(*token.ValidFromDate)
	}

	if token.ExpiryDate != nil {
		claims["exp"] = jwt.NewNumericDate(*token.ExpiryDate)
	}

	token.Data, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokenSigningKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err = s.repos.Tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	log.Info().Str("token", token.Name).Str("token_id", token.ID.String()).Msg("token generated")

	return token, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	u := t.UTC()

	return &u
}

// ValidateToken verifies the signature of a token and returns the stored token if it is active.
func (s *Service) ValidateToken(ctx context.Context, data string) (*models.Token, error) {
	if len(s.tokenSigningKey) == 0 {
		return nil, ErrTokenSigningKeyMissing
	}

	parsed, err := jwt.Parse(data, func(*jwt.Token) (any, error) {
		return s.tokenSigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", problem.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, problem.ErrInvalidToken
	}

	jti, _ := claims["jti"].(string)

	id, err := uuid.Parse(jti)
	if err != nil {
		return nil, fmt.Errorf("%w: missing token id", problem.ErrInvalidToken)
	}

	token, err := s.repos.Tokens.FindByID(ctx, id)
	if errors.Is(err, problem.ErrTokenNotFound) {
		return nil, fmt.Errorf("%w: unknown token", problem.ErrInvalidToken)
	}

	if err != nil {
		return nil, err
	}

	if status := token.Status(s.now()); status != models.TokenStatusActive {
		return nil, fmt.Errorf("%w: token is %s", problem.ErrInvalidToken, status)
	}

	return token, nil
}

// GetToken retrieves a token.
func (s *Service) GetToken(ctx context.Context, tokenID uuid.UUID) (*models.Token, error) {
	return s.repos.Tokens.FindByID(ctx, tokenID)
}

// GetTokens lists the tokens whose name matches the filter. A non empty status keeps only the
// tokens currently in that status.
func (s *Service) GetTokens(ctx context.Context, status models.TokenStatus, filter string) ([]models.Token, error) {
	tokens, err := s.repos.Tokens.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	if status == "" {
		return tokens, nil
	}

	now := s.now()
	matching := make([]models.Token, 0, len(tokens))

	for i := range tokens {
		if tokens[i].Status(now) == status {
			matching = append(matching, tokens[i])
		}
	}

	return matching, nil
}

// GetTokenSummaries lists token summaries, see GetTokens.
func (s *Service) GetTokenSummaries(
	ctx context.Context,
	status models.TokenStatus,
	filter string,
) ([]models.TokenSummary, error) {
	tokens, err := s.GetTokens(ctx, status, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summaries := make([]models.TokenSummary, len(tokens))

	for i := range tokens {
		t := &tokens[i]
		summaries[i] = models.TokenSummary{
			ID:             t.ID,
			Type:           t.Type,
			Name:           t.Name,
			Status:         t.Status(now),
			ValidFromDate:  t.ValidFromDate,
			ExpiryDate:     t.ExpiryDate,
			RevocationDate: t.RevocationDate,
			Issued:         t.Issued,
		}
	}

	return summaries, nil
}

// RevokeToken revokes a token as of now. Revoking a revoked token keeps the original revocation date.
func (s *Service) RevokeToken(ctx context.Context, tokenID uuid.UUID) error {
	token, err := s.repos.Tokens.FindByID(ctx, tokenID)
	if err != nil {
		return err
	}

	if token.RevocationDate != nil {
		return nil
	}

	now := s.now()
	token.RevocationDate = &now

	if err = s.repos.Tokens.Save(ctx, token); err != nil {
		return err
	}

	log.Info().Str("token", token.Name).Str("token_id", token.ID.String()).Msg("token revoked")

	return nil
}

// ReinstateToken removes the revocation of a token.
func (s *Service) ReinstateToken(ctx context.Context, tokenID uuid.UUID) error {
	token, err := s.repos.Tokens.FindByID(ctx, tokenID)
	if err != nil {
		return err
	}

	if token.RevocationDate == nil {
		return nil
	}

	token.RevocationDate = nil

	return s.repos.Tokens.Save(ctx, token)
}

// DeleteToken deletes a token.
func (s *Service) DeleteToken(ctx context.Context, tokenID uuid.UUID) error {
	return s.repos.Tokens.Delete(ctx, tokenID)
}
