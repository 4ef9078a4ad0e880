// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package run

import (
	"errors"
	"log/slog"

	"github.com/charmbracelet/huh"

	"github.com/tombee/mcrun/internal/commands/shared"
	"github.com/tombee/mcrun/internal/workspace"
)

// Replaced in tests.
var (
	confirmEULA    = promptEULA
	nonInteractive = shared.IsNonInteractive
)

// ensureEULA makes sure eula.txt in dir records acceptance. With accept
// set it writes the file; otherwise an interactive operator is asked. A
// non-interactive run without acceptance only warns: the server refuses to
// start on its own and says why.
func ensureEULA(dir string, accept bool, logger *slog.Logger) error {
	ok, err := workspace.EULAAccepted(dir)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if !accept {
		if nonInteractive() {
			logger.Warn("Minecraft EULA not accepted, the server will not start",
				"eula_url", workspace.EULAURL,
				"hint", "pass --accept-eula or set MCRUN_ACCEPT_EULA=true",
			)
			return nil
		}
		accept, err = confirmEULA()
		if err != nil {
			return err
		}
		if !accept {
			return shared.NewUsageError("Minecraft EULA not accepted", nil)
		}
	}

	if err := workspace.AcceptEULA(dir); err != nil {
		return err
	}
	logger.Info("accepted Minecraft EULA", "eula_url", workspace.EULAURL)
	return nil
}

func promptEULA() (bool, error) {
	var accept bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Accept the Minecraft EULA?").
				Description("The server only starts once eula.txt says eula=true.\nRead it at " + workspace.EULAURL).
				Affirmative("Yes, I accept").
				Negative("No").
				Value(&accept),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return accept, nil
}
