// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package awsresponses

import (
	"strings"

	"github.com/google/uuid"
)

// NextRequestID returns a request ID shaped like DynamoDB's: 52 upper-case
// alphanumerics.
func NextRequestID() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""))
	return id[:52]
}
