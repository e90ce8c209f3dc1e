package subagent

import "fmt"

func qualityGuardianMessage(ctx Context) string {
	return fmt.Sprintf(`🛡️ Quality Guardian Review Needed

Modified files: %d
Complexity indicators detected.

The quality-guardian sub-agent should review recent changes for:
1. Overengineering and unnecessary complexity
2. Code duplication
3. Performance issues
4. Best practice violations

Invoke with: Use the Task tool with subagent_type="quality-guardian"
`, ctx.ModifiedFilesCount)
}

func docsSyncMessage(livingDoc string, ctx Context) string {
	return fmt.Sprintf(`📚 Documentation Sync Needed

Commits since last doc update: %d
Modified files: %d

The docs-sync sub-agent should:
1. Update %s files with recent changes
2. Sync technical documentation
3. Update component descriptions
4. Review and update troubleshooting guides

Invoke with: Use the Task tool with subagent_type="docs-sync"
`, ctx.CommitsSinceDocUpdate, ctx.ModifiedFilesCount, livingDoc)
}
