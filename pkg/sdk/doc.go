// Package vecdemo provides a Go client for the image-search and knowledge-base
// demo backends of the vector database.
//
// Both backends expose POST /upload and POST /search. The image backend takes
// multipart forms and answers with ranked image URLs; the knowledge backend
// takes a JSON query and answers with an arbitrary JSON document.
//
//	client, _ := vecdemo.New(
//	    vecdemo.WithImagesBackend("http://localhost:5000"),
//	    vecdemo.WithKnowledgeBackend("http://localhost:5001"),
//	)
//	img, _ := vecdemo.FileFromPath("cat.png")
//	msg, _ := client.Images().Upload(ctx, "42", img)
//	ranked, _ := client.Images().Search(ctx, img)
//	answer, _ := client.Knowledge().Search(ctx, "what is a vector index?")
package vecdemo
