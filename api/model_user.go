package api

// UserAttributes maps attribute names to values. Values are usually strings,
// bools or numbers; any Go integer or float type is accepted for numeric
// comparisons.
type UserAttributes map[string]interface{}

// BucketingIDAttribute overrides the user id as the bucketing input when set
// to a string attribute value.
const BucketingIDAttribute = "$bucketing_id"

type User struct {
	UserId     string         `json:"user_id"`
	Attributes UserAttributes `json:"attributes,omitempty"`
}

// BucketingId returns the value used as bucketing input for this user.
func (u User) BucketingId() string {
	if v, ok := u.Attributes[BucketingIDAttribute].(string); ok {
		return v
	}
	return u.UserId
}

// Copy returns a User whose attribute map can be modified without affecting u.
func (u User) Copy() User {
	return User{
		UserId:     u.UserId,
		Attributes: u.Attributes.Copy(),
	}
}

func (a UserAttributes) Copy() UserAttributes {
	if a == nil {
		return UserAttributes{}
	}
	out := make(UserAttributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
