package decision

import (
	"fmt"
	"strings"
)

const unknownFile = "unknown file"

func displayPath(p string) string {
	if p == "" {
		return unknownFile
	}
	return p
}

// VerificationMessage is the block reason of the verification gate.
func VerificationMessage(path string) string {
	return fmt.Sprintf(`🔍 Assumption verification needed for %s

Before proceeding, please verify:
1. Check if required libraries/dependencies are installed
2. Verify file structure matches project conventions
3. Confirm API endpoints and configurations exist
4. Validate data formats and schemas

Use appropriate tools (Read, Grep, Glob) to verify assumptions, then type 'continue' to proceed.`, displayPath(path))
}

// QualityMessage is the block reason of the quality gate.
func QualityMessage(path string) string {
	return fmt.Sprintf(`✅ Quality check needed for %s

Please run appropriate quality checks:
1. Build/compile the project to check for errors
2. Run linting tools if available
3. Execute type checking if applicable
4. Verify tests still pass

After running checks and fixing any issues, type 'continue' to proceed.`, displayPath(path))
}

// SecretMessage is the block reason when credentials are found.
func SecretMessage(path string, ruleIDs []string) string {
	return fmt.Sprintf(`🔐 Possible secret detected in %s

Detected: %s

Remove the credential and read it from the environment or a secret store.
If this is a false positive, allowlist it in .gitleaks.toml.`, displayPath(path), strings.Join(ruleIDs, ", "))
}
