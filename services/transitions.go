package services

import "github.com/kendall-kelly/barter-api/models"

// Role is the caller's side of a trade
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// roleRule names which side may request a status; an empty rule means either side
type roleRule Role

const anyParticipant roleRule = ""

func (r roleRule) allows(role Role) bool {
	return r == anyParticipant || Role(r) == role
}

// who may request each target status, whatever the current one
var targetRoles = map[models.TradeStatus]roleRule{
	models.TradeAccepted:  roleRule(RoleReceiver),
	models.TradeDeclined:  roleRule(RoleReceiver),
	models.TradeCancelled: roleRule(RoleSender),
	models.TradePending:   anyParticipant,
	models.TradeCompleted: anyParticipant,
}

// TransitionPolicy decides whether role may move a trade from current to next.
// It returns ErrRoleNotAllowed or ErrInvalidTransition when it refuses.
type TransitionPolicy interface {
	Check(current, next models.TradeStatus, role Role) error
}

// PermissivePolicy only enforces who may request each status
type PermissivePolicy struct{}

func (PermissivePolicy) Check(_, next models.TradeStatus, role Role) error {
	rule, ok := targetRoles[next]
	if !ok {
		return ErrInvalidTransition
	}
	if !rule.allows(role) {
		return ErrRoleNotAllowed
	}
	return nil
}

// StrictPolicy also enforces a lifecycle: declined, cancelled and completed are terminal.
type StrictPolicy struct{}

var strictTransitions = map[models.TradeStatus][]models.TradeStatus{
	models.TradePending:  {models.TradeAccepted, models.TradeDeclined, models.TradeCancelled},
	models.TradeAccepted: {models.TradeCompleted, models.TradeCancelled},
}

func (StrictPolicy) Check(current, next models.TradeStatus, role Role) error {
	if err := (PermissivePolicy{}).Check(current, next, role); err != nil {
		return err
	}
	for _, allowed := range strictTransitions[current] {
		if allowed == next {
			return nil
		}
	}
	return ErrInvalidTransition
}

// NewTransitionPolicy returns the policy named by mode ("strict" or anything else for permissive)
func NewTransitionPolicy(mode string) TransitionPolicy {
	if mode == "strict" {
		return StrictPolicy{}
	}
	return PermissivePolicy{}
}
