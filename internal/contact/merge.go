package contact

// Merge applies a candidate's attributes and event participation to an
// existing contact, in place. Non-empty candidate values overwrite stored
// values; empty candidate values never erase anything. Participation flags
// are a monotonic union: the flag for kind is set true in addition to
// whatever flags the contact already carries, so merging is idempotent.
//
// Every store implementation routes its merge_update through this function
// so memory and postgres agree on semantics.
func Merge(existing *Contact, cand Candidate, event EventContext) {
	if cand.FirstName != "" {
		existing.FirstName = cand.FirstName
	}
	if cand.LastName != "" {
		existing.LastName = cand.LastName
	}
	if cand.Company != "" {
		existing.Company = cand.Company
	}
	if cand.JobTitle != "" {
		existing.JobTitle = cand.JobTitle
	}
	if cand.Phone != "" {
		existing.Phone = cand.Phone
	}
	if cand.Country != "" {
		existing.Country = cand.Country
	}

	ApplyParticipation(existing, event)
}

// ApplyParticipation sets the participation flag for the event's kind,
// preserving any flags already set.
func ApplyParticipation(c *Contact, event EventContext) {
	if c.Events == nil {
		c.Events = make(map[string]Participation, 1)
	}

	p := c.Events[event.EventID]
	p.EventID = event.EventID
	if event.EventName != "" {
		p.EventName = event.EventName
	}
	switch event.Kind {
	case Registered:
		p.Registered = true
	case Attended:
		p.Attended = true
	}
	c.Events[event.EventID] = p
}
