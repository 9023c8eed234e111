// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies errors from request dispatch into a
// small set of categories. The calling layer uses the categories to
// decide on retry, which this module never does itself, and the metrics
// and diagnostic handlers use them to bucket outcomes.
//
// Package transient depends only on the standard library, so it brings
// no dependencies when imported as a standalone package.
package transient
