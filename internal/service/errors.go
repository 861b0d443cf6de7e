package service

import (
	"errors"
	"fmt"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id string, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrNftNotFound(tokenID string) *ErrResourceNotFound {
	return NewErrResourceNotFound(tokenID, "nft")
}

func NewErrVerificationNotFound(id string) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "verification")
}

func NewErrUserNotFound(address string) *ErrResourceNotFound {
	return NewErrResourceNotFound(address, "user")
}

type ErrInvalidSignature struct {
	error
}

func NewErrInvalidSignature() *ErrInvalidSignature {
	return &ErrInvalidSignature{errors.New("Invalid signature")}
}

type ErrInvalidNonce struct {
	error
}

func NewErrInvalidNonce() *ErrInvalidNonce {
	return &ErrInvalidNonce{errors.New("Invalid nonce")}
}

type ErrInvalidAddress struct {
	error
}

func NewErrInvalidAddress(address string) *ErrInvalidAddress {
	return &ErrInvalidAddress{fmt.Errorf("invalid wallet address %q", address)}
}
