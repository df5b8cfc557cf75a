package sqlinline

const QUpsertRenderEntry = `--sql bb503cad-33a2-442e-bf00-1726dc3bbb70
insert into render_cache_entries(
  cache_key,
  draft_id,
  template_id,
  theme_id,
  storage_path,
  size_bytes,
  created_at
) values ($1, $2, $3, $4, $5, $6::bigint, now())
on conflict (draft_id, theme_id) do update set
  cache_key = excluded.cache_key,
  template_id = excluded.template_id,
  storage_path = excluded.storage_path,
  size_bytes = excluded.size_bytes,
  created_at = now();
`

const QGetRenderEntry = `--sql 6243decb-d183-41d7-9e28-88ca4aa0e385
select cache_key, draft_id, template_id, theme_id, storage_path, size_bytes, created_at
from render_cache_entries
where draft_id = $1 and theme_id = $2
limit 1;
`

const QGetRenderEntryByKey = `--sql 3dcd08db-5de3-4aec-ba1d-27b75da6fd36
select cache_key, draft_id, template_id, theme_id, storage_path, size_bytes, created_at
from render_cache_entries
where cache_key = $1
limit 1;
`

const QListRenderEntriesByDraft = `--sql 45c7f2e6-530d-4a3b-8220-33255d674c78
select cache_key, draft_id, template_id, theme_id, storage_path, size_bytes, created_at
from render_cache_entries
where draft_id = $1
order by created_at desc;
`

const QDeleteRenderEntriesByDraft = `--sql a7db15f8-6bd1-4e35-9a34-155bc0c4f539
delete from render_cache_entries
where draft_id = $1
returning cache_key, draft_id, template_id, theme_id, storage_path, size_bytes, created_at;
`

const QClearRenderEntries = `--sql 0c9951cf-38a7-423d-98f9-e2208b0a2edb
delete from render_cache_entries;
`
