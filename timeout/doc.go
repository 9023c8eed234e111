// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines policies for bounding the single network
// call made by a task. A generic interface for timeout policies is
// provided, Policy, along with built-in policies and policy generating
// functions.
package timeout
