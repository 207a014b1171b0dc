package models

// User documents are keyed by handle. The password hash never leaves the
// backend; FollowCount counts followers, not followings.
type User struct {
	Handle         string `bson:"_id" json:"handle"`
	UserID         string `bson:"userId" json:"userId"`
	Email          string `bson:"email" json:"email"`
	Name           string `bson:"name,omitempty" json:"name,omitempty"`
	Bio            string `bson:"bio,omitempty" json:"bio,omitempty"`
	Website        string `bson:"website,omitempty" json:"website,omitempty"`
	ProfilePicture string `bson:"profilePicture" json:"profilePicture"`
	PasswordHash   string `bson:"passwordHash" json:"-"`
	FollowCount    int64  `bson:"followCount" json:"followCount"`
	CreatedAt      string `bson:"createdAt" json:"createdAt"`
}
