package server

import (
	"fmt"
	"html/template"
)

func parsePages() (*template.Template, error) {
	t, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}
	return t, nil
}

// pageTemplate is the Go html/template for every section page. Theme
// stylesheets live under css/ in the site directory.
const pageTemplate = `<!DOCTYPE html>
<html lang="en" data-theme="{{.Theme}}">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <link rel="stylesheet" id="theme-link" href="/css/theme-{{.Theme}}.css">
</head>
<body data-section="{{.Section}}" data-category="{{.Category}}">
  <header class="site-header">
    {{.Header}}
    <nav class="site-nav">
      {{range .Nav}}<a href="{{.Href}}"{{if .Active}} class="active"{{end}}>{{.Label}}</a>
      {{end}}
    </nav>
    <div class="theme-picker">
      {{range .Themes}}<a href="{{.Href}}"{{if .Active}} class="active"{{end}}>{{.Label}}</a>
      {{end}}
    </div>
  </header>

  <div id="notice" class="notice"{{if not .Notice.Show}} hidden{{end}} data-dismiss-after="{{.Notice.Millis}}">{{.Notice.Message}}</div>

  <main class="content">
  {{if .Error}}<p class="error">{{.Error}}</p>{{end}}

  {{with .Open}}
    <article class="item">
      <a class="back" href="{{.Back}}">&larr; Back to {{$.Section}}</a>
      <h1>{{.Item.Title}}</h1>
      {{if .Item.Date}}<time>{{.Item.Date}}</time>{{end}}
      {{if .Err}}<p class="error">{{.Err}}</p>{{else}}<div class="item-body">{{.HTML}}</div>{{end}}
      <nav class="item-nav">
        {{with .Prev}}<a class="prev" href="{{.Href}}">&larr; {{.Label}}</a>{{end}}
        {{with .Next}}<a class="next" href="{{.Href}}">{{.Label}} &rarr;</a>{{end}}
      </nav>
    </article>
  {{else}}{{if .Section}}
    <form class="search" method="get" action="/{{.Section}}">
      {{if ne .Category "all"}}<input type="hidden" name="category" value="{{.Category}}">{{end}}
      <input type="search" name="q" value="{{.Search}}" placeholder="Search...">
    </form>
    <nav class="categories">
      {{range .Categories}}<a href="{{.Href}}"{{if .Active}} class="active"{{end}}>{{.Label}}</a>
      {{end}}
    </nav>

    {{if .Empty}}<p class="empty">No posts found</p>{{end}}
    <div class="cards" id="cards">
      {{range .Cards}}
      <a class="card{{if .Item.IsUnread}} unread{{end}}" href="{{.Href}}">
        <h2>{{.Item.Title}}</h2>
        {{if .Item.Date}}<time>{{.Item.Date}}</time>{{end}}
        {{if .Err}}<p class="error">{{.Err}}</p>{{else}}<p class="preview">{{.Preview}}</p>{{end}}
      </a>
      {{end}}
    </div>

    {{with .Pager}}
    <nav class="pager">
      {{if .Prev}}<a href="{{.Prev}}">&larr; Newer</a>{{end}}
      <span>Page {{.Number}} of {{.Pages}}</span>
      {{if .Next}}<a href="{{.Next}}">Older &rarr;</a>{{end}}
    </nav>
    {{end}}

    {{with .More}}
    <button id="load-more" data-api="{{.API}}" data-offset="{{.Offset}}" data-limit="{{.Limit}}">Load more</button>
    {{end}}

    {{with .Songs}}
    <section class="songs">
      <h2>Songs of the day</h2>
      <ul>
        {{range .Songs}}<li><a href="{{.URL}}"><time>{{.Date}}</time> {{.Preview}}</a></li>
        {{end}}
      </ul>
      {{if .More}}<p>... and {{.More}} more</p>{{end}}
    </section>
    {{end}}
  {{else}}
    <h1>{{.SiteTitle}}</h1>
    <ul class="sections">
      {{range .Nav}}<li><a href="{{.Href}}">{{.Label}}</a></li>
      {{end}}
    </ul>
  {{end}}{{end}}
  </main>

  <footer class="site-footer">{{.Footer}}</footer>

  <script>
  (function () {
    var notice = document.getElementById('notice');
    var timer = null;
    function show(msg, ms) {
      notice.textContent = msg;
      notice.hidden = false;
      clearTimeout(timer);
      timer = setTimeout(function () { notice.hidden = true; }, ms || 5000);
    }
    if (!notice.hidden) {
      show(notice.textContent, +notice.dataset.dismissAfter);
    }

    var more = document.getElementById('load-more');
    if (more) {
      more.addEventListener('click', function () {
        if (more.disabled) return;
        more.disabled = true;
        var api = more.dataset.api;
        var sep = api.indexOf('?') < 0 ? '?' : '&';
        fetch(api + sep + 'offset=' + more.dataset.offset + '&limit=' + more.dataset.limit)
          .then(function (r) { return r.json(); })
          .then(function (data) {
            var cards = document.getElementById('cards');
            data.items.forEach(function (it) {
              var a = document.createElement('a');
              a.className = 'card' + (it.unread ? ' unread' : '');
              a.href = it.url;
              var h = document.createElement('h2');
              h.textContent = it.title;
              a.appendChild(h);
              var p = document.createElement('p');
              p.className = it.error ? 'error' : 'preview';
              p.textContent = it.error ? 'Preview unavailable.' : (it.preview || '');
              a.appendChild(p);
              cards.appendChild(a);
            });
            var next = data.offset + data.items.length;
            more.dataset.offset = next;
            if (next >= data.total) more.remove(); else more.disabled = false;
          })
          .catch(function () { more.disabled = false; });
      });
    }

    var section = document.body.dataset.section;
    if (!section || !window.WebSocket) return;
    var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var ws = new WebSocket(proto + location.host + '/ws/live');
    ws.onopen = function () {
      ws.send(JSON.stringify({type: 'view', section: section, category: document.body.dataset.category}));
    };
    ws.onmessage = function (ev) {
      var m = JSON.parse(ev.data);
      if (m.type === 'notice') show(m.message, m.dismiss_after_ms);
      if (m.type === 'dismiss') notice.hidden = true;
    };
  })();
  </script>
</body>
</html>`
