package constant

const (
	WelcomeMessage = `Willkommen in der Dokumenten-Review-App! Wie kann ich Ihnen heute behilflich sein ?
Falls Sie ein Dokument nach bestimmten formalen Kriterien überprüfen lassen möchten, teilen Sie mir bitte die KM-ID mit.`

	// ArtifactChangedPrompt is sent silently after a document was bound.
	ArtifactChangedPrompt = `Das Artefakt wurde aktualisiert. Bitte löschen und vergessen Sie alle zuvor bewerteten Kriterien und setzen Sie alle vorherigen Bewertungen zurück. Sie müssen erstmal das neue Artefakt öffnen und fragen Sie nochmal nach der KM ID, um eine Prüfung zu starten.`

	ReportFileName = "Bericht.txt"
	ReportMIMEType = "text/plain"

	// DefaultPersona receives free-text chat before any check group ran.
	DefaultPersona = "review"
)

// Event bus topics (watermill, in process).
const (
	TopicCheckGroupCompleted = "review.check_group.completed"
)

// Board push event types (websocket).
const (
	BoardEventCriterion = "criterion"
	BoardEventGroupDone = "group_done"
	BoardEventDocuments = "documents"
	BoardEventChat      = "chat"
)
