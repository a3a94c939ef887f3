package flow

// StepReport drives report submission. Committing a report always advances
// the browse queue — the effect handler records the report and then shows
// the next candidate, never a neutral idle screen.
func StepReport(s State, sig Signal, d Draft) (Result, bool) {
	switch s {
	case StateChoosingReportReason:
		if reason, ok := payloadArg(sig, "report_reason:"); ok {
			d.ReportReason = reason
			if reason == ReasonOther {
				// "Other" requires a free-text comment, no skip.
				return Result{
					Next:   StateEnteringReportComment,
					Draft:  d,
					Prompt: &Prompt{Text: "Describe the reason for your report:"},
				}, true
			}
			d.ReportComment = nil
			return Result{Next: StateViewingProfiles, Draft: d, Effect: EffectSubmitReport}, true
		}
		if buttonPayload(sig) == "report_cancel" {
			d.ReportReason = ""
			d.ReportComment = nil
			return Result{
				Next:  StateViewingProfiles,
				Draft: d,
				Prompt: &Prompt{
					Text:    "Report cancelled.",
					Choices: SearchChoices(),
				},
			}, true
		}

	case StateEnteringReportComment:
		if sig.Kind != SignalText || sig.Text == "" {
			return Result{}, false
		}
		comment := sig.Text
		d.ReportComment = &comment
		return Result{Next: StateViewingProfiles, Draft: d, Effect: EffectSubmitReport}, true
	}
	return Result{}, false
}
