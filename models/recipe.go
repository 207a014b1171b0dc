package models

// RecipeBody is the free-form cooking content of a recipe.
type RecipeBody struct {
	Title       string   `bson:"title" json:"title"`
	Time        string   `bson:"time" json:"time"`
	Portions    string   `bson:"portions" json:"portions"`
	Intro       string   `bson:"intro" json:"intro"`
	Steps       []string `bson:"steps" json:"steps"`
	Tips        []string `bson:"tips" json:"tips"`
	Ingredients []string `bson:"ingredients" json:"ingredients"`
}

// Recipe carries denormalized author data (userName, profilePicture) and
// denormalized counters. Counters are maintained incrementally by the
// relations engine, not derived at read time.
type Recipe struct {
	ID             string     `bson:"_id,omitempty" json:"id"`
	UserHandle     string     `bson:"userHandle" json:"userHandle"`
	UserName       string     `bson:"userName" json:"userName"`
	ProfilePicture string     `bson:"profilePicture" json:"profilePicture"`
	Body           RecipeBody `bson:"body" json:"body"`
	Tags           []Tag      `bson:"tags" json:"tags"`
	MainPicture    string     `bson:"mainPicture" json:"mainPicture"`
	Pictures       []string   `bson:"pictures" json:"pictures"`
	LikeCount      int64      `bson:"likeCount" json:"likeCount"`
	CommentCount   int64      `bson:"commentCount" json:"commentCount"`
	BookmarkCount  int64      `bson:"bookmarkCount" json:"bookmarkCount"`
	CreatedAt      string     `bson:"createdAt" json:"createdAt"`

	// Populated on single-recipe reads only.
	Comments []Comment `bson:"-" json:"comments,omitempty"`
}

type Comment struct {
	ID             string `bson:"_id,omitempty" json:"id"`
	RecipeID       string `bson:"recipeId" json:"recipeId"`
	UserHandle     string `bson:"userHandle" json:"userHandle"`
	UserName       string `bson:"userName" json:"userName"`
	ProfilePicture string `bson:"profilePicture" json:"profilePicture"`
	Body           string `bson:"body" json:"body"`
	CreatedAt      string `bson:"createdAt" json:"createdAt"`
}

// Tag is a read-only reference document matched against free-text tag input
// at recipe creation time.
type Tag struct {
	ID    string `bson:"_id,omitempty" json:"id"`
	Value string `bson:"value" json:"value"`
}
