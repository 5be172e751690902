package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jun/jotflow/internal/app"
)

func main() {
	application := app.New(context.Background())
	lambda.Start(application.HandleRequest)
}
