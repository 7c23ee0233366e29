package repository

import "github.com/garyjia/travel-report/internal/application/port"

// reportScopeClause renders a visibility predicate on the report owner
// column userCol. It returns "" when everything is visible.
func reportScopeClause(scope port.ReportScope, userCol string) (string, []interface{}) {
	if scope.All {
		return "", nil
	}
	if scope.IsEmpty() {
		return "1 = 0", nil
	}

	var parts []string
	var args []interface{}
	if scope.OwnerID != 0 {
		parts = append(parts, userCol+" = ?")
		args = append(args, scope.OwnerID)
	}
	if scope.TeamHeadID != 0 {
		parts = append(parts, userCol+` IN (
			SELECT u.id FROM users u
			JOIN work_units w ON w.id = u.work_unit_id
			WHERE w.head_id = ?)`)
		args = append(args, scope.TeamHeadID)
	}
	if len(parts) == 1 {
		return parts[0], args
	}
	return "(" + parts[0] + " OR " + parts[1] + ")", args
}
