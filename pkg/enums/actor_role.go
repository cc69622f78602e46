package enums

// ActorRole identifies who is calling the API.
type ActorRole string

const (
	ActorRoleParticipant ActorRole = "participant"
	ActorRoleOperator    ActorRole = "operator"
)

var validActorRoles = []ActorRole{
	ActorRoleParticipant,
	ActorRoleOperator,
}

func (r ActorRole) String() string { return string(r) }

func (r ActorRole) IsValid() bool {
	for _, valid := range validActorRoles {
		if r == valid {
			return true
		}
	}
	return false
}
