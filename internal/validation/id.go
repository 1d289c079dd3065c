/*
 * MIT License
 *
 * Copyright (c) 2022-2026 Tochemey
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package validation

import (
	"errors"
	"regexp"
)

// idPattern matches actor, application and port identifiers: word
// characters with optional non-leading '-' or '_'.
const idPattern = `^[a-zA-Z0-9][a-zA-Z0-9-_]*$`

var idRegex = regexp.MustCompile(idPattern)

// idValidator validates an identifier against idPattern
type idValidator struct {
	id        string
	customErr error
}

var _ Validator = (*idValidator)(nil)

// NewIDValidator creates an instance of the validator
func NewIDValidator(id string, customErr error) Validator {
	return &idValidator{id: id, customErr: customErr}
}

// Validate executes the validation
func (v *idValidator) Validate() error {
	if !idRegex.MatchString(v.id) {
		if v.customErr != nil {
			return v.customErr
		}
		return errors.New("invalid identifier: " + v.id)
	}
	return nil
}
