package server

import "html/template"

var pageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Translate Japanese to Vietnamese</title>
<style>
body { font-family: sans-serif; max-width: 40rem; margin: 3rem auto; }
input[type=text] { width: 100%; padding: .5rem; font-size: 1.1rem; }
button { margin-top: .75rem; padding: .4rem 1.2rem; }
.result { margin-top: 1.5rem; font-size: 1.2rem; }
.error { color: #b00; }
</style>
</head>
<body>
<h1>Translate Japanese to Vietnamese</h1>
<form method="post" action="/">
<input type="text" name="text" value="{{.Text}}" placeholder="日本語の文を入力してください" autofocus>
<button type="submit">Translate</button>
</form>
{{if .Error}}<p class="result error">{{.Error}}</p>{{end}}
{{if .Translation}}<p class="result">{{.Translation}}</p>{{end}}
</body>
</html>
`))
