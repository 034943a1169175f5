package assistant

import "github.com/koscakluka/ziggy/core/router"

const (
	welcomeMessage  = "Welcome. Ziggy is ready to assist you."
	acknowledgement = "Yes?"
	notUnderstood   = "I couldn't understand that"

	stayingLocal = "Okay, staying local. Is there anything else I can help you with?"

	remoteStatusApology = "Sorry, I couldn't process that request"
	remoteErrorApology  = "Sorry, there was an error processing your request"

	webSearchOpened = "Opening web search for "
	browserFailed   = "Could not open web browser"

	remotePromptPrefix = "Please provide a brief, spoken response to: "
)

const (
	PermissionReasonAI        = "ai"
	PermissionReasonWebSearch = "web search"
)

func permissionReason(target router.Target) string {
	if target == router.TargetWebSearch {
		return PermissionReasonWebSearch
	}
	return PermissionReasonAI
}

func permissionQuestion(reason string) string {
	if reason == PermissionReasonWebSearch {
		return "Searching the web needs an internet connection. Do you want me to go online?"
	}
	return "I cannot answer that from my local resources. Do you want me to check online?"
}
