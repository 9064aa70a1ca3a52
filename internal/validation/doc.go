// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

/*
Package validation validates API request structs with go-playground/validator.

A single validator instance is shared process-wide; it caches struct
metadata, so repeated validation of the same request type is cheap.

Field names in errors come from the struct's query or json tag, so messages
name the parameter the client actually sent:

	type FeedRequest struct {
	    UserID string `query:"user_id" validate:"required,userid"`
	    Page   int    `query:"page" validate:"min=1"`
	    Limit  int    `query:"limit" validate:"min=1,max=50"`
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
	    apiErr := verr.ToAPIError()
	    // 400 VALIDATION_FAILED with apiErr.Message and apiErr.Details
	}

# Custom Tags

  - userid: 1 to 128 characters of letters, digits and . _ : @ -
*/
package validation
