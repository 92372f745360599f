package core

import "context"

// Policy decides whether one user may signal another.
type Policy interface {
	AllowSignal(ctx context.Context, from, to string) (bool, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, from, to string) (bool, error)

// AllowSignal calls f.
func (f PolicyFunc) AllowSignal(ctx context.Context, from, to string) (bool, error) {
	return f(ctx, from, to)
}

// AllowAll lets any authenticated user signal any user ID.
func AllowAll() Policy {
	return PolicyFunc(func(context.Context, string, string) (bool, error) {
		return true, nil
	})
}

// RelationshipChecker answers whether two users have an accepted connection.
type RelationshipChecker interface {
	AreConnected(ctx context.Context, userA, userB string) (bool, error)
}

// ConnectedOnly admits signals only between users with an accepted relationship.
// Signaling one's own other devices is always allowed.
func ConnectedOnly(checker RelationshipChecker) Policy {
	return PolicyFunc(func(ctx context.Context, from, to string) (bool, error) {
		if from == to {
			return true, nil
		}
		return checker.AreConnected(ctx, from, to)
	})
}
