package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	KindOwner    = "owner"
	KindCustomer = "customer"
)

var ErrWrongTokenKind = errors.New("wrong token kind")

// OwnerClaims identify a business owner or super admin.
type OwnerClaims struct {
	UserID     int64  `json:"user_id"`
	Email      string `json:"email"`
	BusinessID int64  `json:"business_id"`
	Role       string `json:"role"`
	Kind       string `json:"kind"`
	jwt.RegisteredClaims
}

// CustomerClaims identify a customer of one business. CustomerID is the
// per-business sequence number shown to the customer; CustomerRef is the row id.
type CustomerClaims struct {
	CustomerID  int64  `json:"customer_id"`
	CustomerRef int64  `json:"customer_ref"`
	Email       string `json:"email"`
	BusinessID  int64  `json:"business_id"`
	Kind        string `json:"kind"`
	jwt.RegisteredClaims
}

func registered(subject int64, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(subject, 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func GenerateOwnerToken(secret string, ttl time.Duration, userID, businessID int64, email, role string) (string, error) {
	claims := OwnerClaims{
		UserID:           userID,
		Email:            email,
		BusinessID:       businessID,
		Role:             role,
		Kind:             KindOwner,
		RegisteredClaims: registered(userID, ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func GenerateCustomerToken(secret string, ttl time.Duration, customerRef, customerSeq, businessID int64, email string) (string, error) {
	claims := CustomerClaims{
		CustomerID:       customerSeq,
		CustomerRef:      customerRef,
		Email:            email,
		BusinessID:       businessID,
		Kind:             KindCustomer,
		RegisteredClaims: registered(customerRef, ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateOwnerToken(secret, tokenStr string) (*OwnerClaims, error) {
	claims := &OwnerClaims{}
	if err := parse(secret, tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Kind != KindOwner {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}

func ValidateCustomerToken(secret, tokenStr string) (*CustomerClaims, error) {
	claims := &CustomerClaims{}
	if err := parse(secret, tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Kind != KindCustomer {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}

func parse(secret, tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
