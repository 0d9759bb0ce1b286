package service

import (
	"fmt"
	"strings"

	"github.com/velozfibra/portal/internal/model"
)

func overdueDigestTemplate(goals []*model.Goal, today model.Date, appName string) (string, string) {
	subject := fmt.Sprintf("%s: %d overdue goal(s) on %s", appName, len(goals), today)

	var lines strings.Builder
	for _, g := range goals {
		fmt.Fprintf(&lines, "- #%d %s (%s), assigned to %s: %.1f%% of %.2f, ended %s\n",
			g.ID, g.Title, g.Type, g.AssignedTo, g.ProgressPercentage(), g.TargetValue, g.EndDate)
	}

	body := fmt.Sprintf(`Hi,

The following goals are past their end date and not completed yet:

%s
Please update their progress or close them.

Best,
The %s Team`, lines.String(), appName)

	return subject, body
}
