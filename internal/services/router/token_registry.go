package router

import (
	"strings"

	"github.com/hxuan190/pair-router/internal/domain"
)

// TokenID is a compact integer identifier for tokens
type TokenID uint32

// InvalidTokenID represents an invalid/unknown token
const InvalidTokenID TokenID = 0xFFFFFFFF

// TokenRegistry maps token addresses to dense integer IDs (0..N-1) for slice-indexed lookups.
// A registry is built once per snapshot and never mutated afterwards, so reads need no lock.
type TokenRegistry struct {
	toID    map[string]TokenID // address -> ID
	toToken []domain.Token     // ID -> token
}

// NewTokenRegistry assigns IDs in first-seen order while walking the market list
// (token0 before token1 of every market).
func NewTokenRegistry(markets []domain.Market) *TokenRegistry {
	r := &TokenRegistry{
		toID:    make(map[string]TokenID, len(markets)),
		toToken: make([]domain.Token, 0, len(markets)),
	}
	for i := range markets {
		r.getOrCreate(markets[i].Token0)
		r.getOrCreate(markets[i].Token1)
	}
	return r
}

func (r *TokenRegistry) getOrCreate(token domain.Token) TokenID {
	token.Address = strings.ToLower(token.Address)
	if id, ok := r.toID[token.Address]; ok {
		return id
	}
	id := TokenID(len(r.toToken))
	r.toID[token.Address] = id
	r.toToken = append(r.toToken, token)
	return id
}

// GetID returns the ID for an address. Unknown addresses return (InvalidTokenID, false).
func (r *TokenRegistry) GetID(address string) (TokenID, bool) {
	id, ok := r.toID[strings.ToLower(address)]
	if !ok {
		return InvalidTokenID, false
	}
	return id, true
}

// GetToken returns the token for an ID
func (r *TokenRegistry) GetToken(id TokenID) domain.Token {
	if int(id) >= len(r.toToken) {
		return domain.Token{}
	}
	return r.toToken[id]
}

// Symbol falls back to the address when the reference data carried no symbol.
func (r *TokenRegistry) Symbol(id TokenID) string {
	t := r.GetToken(id)
	if t.Symbol == "" {
		return t.Address
	}
	return t.Symbol
}

// Size returns the number of registered tokens
func (r *TokenRegistry) Size() int {
	return len(r.toToken)
}

// Tokens returns a copy of all registered tokens in ID order
func (r *TokenRegistry) Tokens() []domain.Token {
	result := make([]domain.Token, len(r.toToken))
	copy(result, r.toToken)
	return result
}
