package mqtt

import "fmt"

func TopicIncident(prefix, outcome, incidentID string) string {
	return fmt.Sprintf("%s/incident/%s/%s", prefix, outcome, incidentID)
}

func TopicSessionAbandon(prefix string) string {
	return fmt.Sprintf("%s/session/+/abandon", prefix)
}
