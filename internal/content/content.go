// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package content resolves documents from a headless content repository.
package content

import (
	"context"
	"errors"
	"time"

	"github.com/olegiv/ignews-go/internal/richtext"
)

// TypePublication is the repository type of blog posts.
const TypePublication = "publication"

// ErrNotFound is returned when no document matches the requested UID.
var ErrNotFound = errors.New("document not found")

// Document is a content document as stored in the repository.
type Document struct {
	ID                   string
	UID                  string
	Type                 string
	Lang                 string
	Title                []richtext.Block
	Content              []richtext.Block
	FirstPublicationDate time.Time
	LastPublicationDate  time.Time
}

// Repository looks up documents by their unique identifier within a type.
type Repository interface {
	GetByUID(ctx context.Context, docType, uid string) (*Document, error)
}
