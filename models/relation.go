package models

// Relation is a directed actor→target association. The id is the
// deterministic composite "actor:target", which makes duplicate detection a
// property of the insert itself. For likes and bookmarks RecipeID is set;
// for follows the target handle lives in Follows.
type Relation struct {
	ID         string `bson:"_id" json:"id"`
	UserHandle string `bson:"userHandle" json:"userHandle"`
	RecipeID   string `bson:"recipeId,omitempty" json:"recipeId,omitempty"`
	Follows    string `bson:"follows,omitempty" json:"follows,omitempty"`
}

// Notification lifecycles are fully derived: the id equals the id of the
// relation or comment that triggered it, so removal on unlike/unfollow is an
// id-for-id delete rather than a query.
type Notification struct {
	ID        string `bson:"_id" json:"id"`
	RecipeID  string `bson:"recipeId,omitempty" json:"recipeId,omitempty"`
	Type      string `bson:"type" json:"type"`
	Sender    string `bson:"sender" json:"sender"`
	Recipient string `bson:"recipient" json:"recipient"`
	Read      bool   `bson:"read" json:"read"`
	CreatedAt string `bson:"createdAt" json:"createdAt"`
}
