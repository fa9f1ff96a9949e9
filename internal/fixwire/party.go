package fixwire

import "strconv"

// Party is one entry of the no. 453 PartyIDs repeating group (§6, §4.3
// step 3: client-id and strategy attribution are carried this way).
type Party struct {
	ID     string
	Source string
	Role   int
}

// AppendParty appends one party block's fields (448/447/452) to body.
// Per §4.3, stamped identity blocks are appended after whatever blocks
// the client already sent, never replacing them.
func AppendParty(body []Field, p Party) []Field {
	body = append(body, Field{TagPartyID, p.ID})
	body = append(body, Field{TagPartyIDSource, p.Source})
	body = append(body, Field{TagPartyRole, strconv.Itoa(p.Role)})
	return body
}

// Parties extracts every (PartyID, PartyIDSource, PartyRole) triple from
// a message body, in wire order. The group count tag (453) itself is
// informational and not required to reconstruct the list.
func Parties(body []Field) []Party {
	var parties []Party
	var cur Party
	has := false
	for _, f := range body {
		switch f.Tag {
		case TagPartyID:
			if has {
				parties = append(parties, cur)
			}
			cur = Party{ID: f.Value}
			has = true
		case TagPartyIDSource:
			if has {
				cur.Source = f.Value
			}
		case TagPartyRole:
			if has {
				if n, err := strconv.Atoi(f.Value); err == nil {
					cur.Role = n
				}
			}
		}
	}
	if has {
		parties = append(parties, cur)
	}
	return parties
}

// HasParty reports whether parties already contains an entry with the
// given role, used to detect a conflicting client-supplied block before
// the proxy stamps its own (§4.3: "must not conflict with the stamped
// identity").
func HasParty(parties []Party, role int) bool {
	for _, p := range parties {
		if p.Role == role {
			return true
		}
	}
	return false
}
